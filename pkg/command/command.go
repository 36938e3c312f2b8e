// Package command is the narrow port through which the harness runs external
// processes: compose, the task-queue CLI and the RADIUS test client.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"

	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
)

// Result is the outcome of a finished process. A non-zero exit code is not an
// error: callers decide what the output means.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

type Runner interface {
	Run(ctx context.Context, argv []string) (Result, error)
}

// ExecRunner runs processes with os/exec in a fixed working directory.
type ExecRunner struct {
	dir string
	env []string
}

func NewExecRunner(dir string, env ...string) *ExecRunner {
	return &ExecRunner{dir: dir, env: env}
}

func (r *ExecRunner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("empty command")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	zap.S().Debugw("running command", "argv", argv, "dir", r.dir)

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, srvErrors.NewCommandError(strings.Join(argv, " "), err)
	}
}

// Split parses a command line such as "docker compose" or
// "docker-compose --ansi never" into argv using shell quoting rules.
func Split(line string) ([]string, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("failed to parse command %q: empty", line)
	}
	return args, nil
}
