package harness

import (
	"sync"
	"sync/atomic"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/compose"
	"github.com/openwisp/docker-openwisp-e2e/internal/config"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	"github.com/openwisp/docker-openwisp-e2e/internal/verifier"
	"github.com/openwisp/docker-openwisp-e2e/internal/workflow"
)

const (
	PrimarySession   = "primary"
	SecondarySession = "secondary"
)

// Suite is the state shared by every scenario of a run. Sessions and tracked
// resources outlive single scenarios, so a scenario may observe what an
// earlier one left behind; dependencies on that are declared through
// Scenario.Requires.
type Suite struct {
	Config    *config.Configuration
	Primary   browser.Session
	Secondary browser.Session
	Tracker   *ResourceTracker
	Library   *workflow.Library
	Verifier  *verifier.Verifier
	Compose   *compose.Client

	failed atomic.Bool

	mu      sync.Mutex
	console map[string][]models.ConsoleEntry
}

func NewSuite(cfg *config.Configuration, tracker *ResourceTracker, lib *workflow.Library, v *verifier.Verifier, c *compose.Client) *Suite {
	return &Suite{
		Config:   cfg,
		Tracker:  tracker,
		Library:  lib,
		Verifier: v,
		Compose:  c,
		console:  map[string][]models.ConsoleEntry{},
	}
}

// MarkFailed sets the run failure flag. It is never cleared.
func (s *Suite) MarkFailed() {
	s.failed.Store(true)
}

func (s *Suite) Failed() bool {
	return s.failed.Load()
}

// Sessions returns the open sessions.
func (s *Suite) Sessions() []browser.Session {
	var out []browser.Session
	for _, sess := range []browser.Session{s.Primary, s.Secondary} {
		if sess != nil {
			out = append(out, sess)
		}
	}
	return out
}

// ConsoleErrors drains the console of sess and returns its error entries.
// Drained entries are kept for the diagnostics of a failed run.
func (s *Suite) ConsoleErrors(sess browser.Session) []models.ConsoleEntry {
	logs := sess.ConsoleLogs()
	s.mu.Lock()
	s.console[sess.Name()] = append(s.console[sess.Name()], logs...)
	s.mu.Unlock()
	return browser.ErrorEntries(logs)
}

// ConsoleHistory drains every session and returns all entries seen during
// the run, by session name.
func (s *Suite) ConsoleHistory() map[string][]models.ConsoleEntry {
	for _, sess := range s.Sessions() {
		s.ConsoleErrors(sess)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]models.ConsoleEntry, len(s.console))
	for k, v := range s.console {
		out[k] = append([]models.ConsoleEntry(nil), v...)
	}
	return out
}
