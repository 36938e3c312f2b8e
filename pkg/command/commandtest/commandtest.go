// Package commandtest provides a scripted command.Runner for tests.
package commandtest

import (
	"context"
	"strings"
	"sync"

	"github.com/openwisp/docker-openwisp-e2e/pkg/command"
)

type rule struct {
	contains string
	result   command.Result
	err      error
}

// Runner answers commands with the first rule whose text is contained in the
// space joined argv. Unmatched commands succeed with empty output.
type Runner struct {
	mu    sync.Mutex
	calls [][]string
	rules []rule
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) On(contains string, res command.Result) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{contains: contains, result: res})
	return r
}

func (r *Runner) Fail(contains string, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{contains: contains, err: err})
	return r
}

func (r *Runner) Run(ctx context.Context, argv []string) (command.Result, error) {
	if err := ctx.Err(); err != nil {
		return command.Result{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), argv...))
	line := strings.Join(argv, " ")
	for _, rl := range r.rules {
		if strings.Contains(line, rl.contains) {
			return rl.result, rl.err
		}
	}
	return command.Result{}, nil
}

// Calls returns every command run so far, joined with spaces.
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

// Count returns how many commands contained text.
func (r *Runner) Count(text string) int {
	n := 0
	for _, c := range r.Calls() {
		if strings.Contains(c, text) {
			n++
		}
	}
	return n
}
