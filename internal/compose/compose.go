// Package compose drives the compose CLI managing the stack under test. It
// only builds argument lists; interpreting output is the verifier's job.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/openwisp/docker-openwisp-e2e/pkg/command"
)

type Client struct {
	runner command.Runner
	base   []string
}

// New parses commandLine ("docker compose", "docker-compose -p stack", ...)
// and returns a client running it through runner.
func New(runner command.Runner, commandLine string) (*Client, error) {
	base, err := command.Split(commandLine)
	if err != nil {
		return nil, err
	}
	return &Client{runner: runner, base: base}, nil
}

type RunOptions struct {
	Service    string
	Entrypoint string
	Volumes    []string
	Remove     bool
}

func (c *Client) Up(ctx context.Context, services ...string) (command.Result, error) {
	return c.run(ctx, append([]string{"up", "--detach"}, services...)...)
}

func (c *Client) Ps(ctx context.Context) (command.Result, error) {
	return c.run(ctx, "ps", "--all")
}

func (c *Client) Logs(ctx context.Context, services ...string) (command.Result, error) {
	return c.run(ctx, append([]string{"logs", "--no-color"}, services...)...)
}

// Services lists the services declared in the compose file.
func (c *Client) Services(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, "config", "--services")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("failed to list compose services: %s", strings.TrimSpace(res.Combined()))
	}
	var services []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			services = append(services, s)
		}
	}
	return services, nil
}

// Run starts a one-off container of opts.Service running args.
func (c *Client) Run(ctx context.Context, opts RunOptions, args ...string) (command.Result, error) {
	argv := []string{"run"}
	if opts.Remove {
		argv = append(argv, "--rm")
	}
	if opts.Entrypoint != "" {
		argv = append(argv, "--entrypoint", opts.Entrypoint)
	}
	for _, v := range opts.Volumes {
		argv = append(argv, "--volume", v)
	}
	argv = append(argv, opts.Service)
	return c.run(ctx, append(argv, args...)...)
}

// Exec runs args inside the running container of service, without a TTY.
func (c *Client) Exec(ctx context.Context, service string, args ...string) (command.Result, error) {
	return c.run(ctx, append([]string{"exec", "-T", service}, args...)...)
}

// Recreate stops and removes service, then starts a fresh container.
func (c *Client) Recreate(ctx context.Context, service string) error {
	if res, err := c.run(ctx, "rm", "--stop", "--force", service); err != nil {
		return err
	} else if res.ExitCode != 0 {
		return fmt.Errorf("failed to remove %s: %s", service, strings.TrimSpace(res.Combined()))
	}
	res, err := c.Up(ctx, service)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to start %s: %s", service, strings.TrimSpace(res.Combined()))
	}
	return nil
}

func (c *Client) run(ctx context.Context, args ...string) (command.Result, error) {
	argv := make([]string, 0, len(c.base)+len(args))
	argv = append(argv, c.base...)
	argv = append(argv, args...)
	return c.runner.Run(ctx, argv)
}
