package harness

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/compose"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
	"github.com/openwisp/docker-openwisp-e2e/pkg/scheduler"
)

// Collector tears a suite down: it deletes tracked records, closes the
// sessions and, after a failed run with log capture enabled, gathers the
// compose logs and console logs for post-mortem.
type Collector struct {
	compose  *compose.Client
	out      io.Writer
	terminal io.Writer
}

// NewCollector writes captured diagnostics to out (the logs file) and
// terminal. Either may be nil.
func NewCollector(c *compose.Client, out, terminal io.Writer) *Collector {
	return &Collector{compose: c, out: out, terminal: terminal}
}

func (c *Collector) Teardown(ctx context.Context, s *Suite) (models.TeardownOutcome, string) {
	outcome := c.deleteResources(ctx, s)
	console := s.ConsoleHistory()
	c.closeSessions(s)

	if !s.Failed() || !s.Config.Diagnostics.Logs {
		return outcome, ""
	}

	diag := c.capture(ctx, console)
	for _, w := range []io.Writer{c.out, c.terminal} {
		if w != nil {
			fmt.Fprintln(w, diag)
		}
	}
	return outcome, diag
}

// deleteResources attempts the deletion of every tracked record exactly
// once. Records already gone are counted, not reported as failures.
func (c *Collector) deleteResources(ctx context.Context, s *Suite) models.TeardownOutcome {
	var outcome models.TeardownOutcome
	handles := s.Tracker.Drain()
	if len(handles) == 0 {
		return outcome
	}
	logger := zap.S().Named("teardown")

	if s.Primary != nil {
		creds := s.Config.Credentials
		if err := s.Library.Authenticate(ctx, s.Primary, creds.Username, creds.Password); err != nil {
			logger.Warnw("failed to authenticate before cleanup", "error", err)
		}
	}

	for _, h := range handles {
		outcome.Attempted++
		err := c.delete(ctx, s, h)
		switch {
		case err == nil:
			outcome.Deleted++
			logger.Debugw("resource deleted", "resource", h.String())
		case srvErrors.IsResourceGoneError(err):
			outcome.Gone++
			logger.Infow("unable to delete resource, already gone", "resource", h.String())
		default:
			outcome.Failed = append(outcome.Failed, fmt.Sprintf("%s: %v", h, err))
			logger.Warnw("failed to delete resource", "resource", h.String(), "error", err)
		}
	}
	return outcome
}

func (c *Collector) delete(ctx context.Context, s *Suite, h models.ResourceHandle) error {
	if s.Primary == nil {
		return fmt.Errorf("no session to delete with")
	}
	detail, err := s.Library.OpenResourceDetail(ctx, s.Primary, h.Name, h.ListURL)
	if err != nil {
		return err
	}
	return s.Library.DeleteResource(ctx, s.Primary, detail)
}

func (c *Collector) closeSessions(s *Suite) {
	for _, sess := range s.Sessions() {
		if err := sess.Close(); err != nil {
			zap.S().Warnw("failed to close session", "session", sess.Name(), "error", err)
		}
	}
}

// capture runs the compose log commands concurrently and renders them with
// the console logs of every session.
func (c *Collector) capture(ctx context.Context, console map[string][]models.ConsoleEntry) string {
	sched := scheduler.NewScheduler[string](2)
	defer sched.Close()

	sections := []string{"compose logs", "compose ps"}
	results := scheduler.Collect(ctx, sched,
		func(ctx context.Context) (string, error) {
			res, err := c.compose.Logs(ctx)
			return res.Combined(), err
		},
		func(ctx context.Context) (string, error) {
			res, err := c.compose.Ps(ctx)
			return res.Combined(), err
		},
	)

	var sb strings.Builder
	sb.WriteString("One of the scenarios failed, captured diagnostics follow\n")
	for i, res := range results {
		body := res.Data
		if res.Err != nil {
			body = fmt.Sprintf("failed to capture: %v", res.Err)
		}
		writeSection(&sb, sections[i], body)
	}

	names := make([]string, 0, len(console))
	for name := range console {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines := make([]string, 0, len(console[name]))
		for _, e := range console[name] {
			lines = append(lines, e.String())
		}
		writeSection(&sb, "console "+name, strings.Join(lines, "\n"))
	}
	return sb.String()
}

func writeSection(sb *strings.Builder, title, body string) {
	fmt.Fprintf(sb, "\n=== %s ===\n", title)
	sb.WriteString(strings.TrimRight(body, "\n"))
	sb.WriteString("\n")
}
