package browser

import (
	"context"
	"time"

	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

// Session is one remote-controlled browser instance. Calls are synchronous:
// each returns once the browser has completed the action.
type Session interface {
	// Name identifies the session in logs and diagnostics.
	Name() string
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching sel. An absent element is
	// reported with found == false and a nil error.
	Find(ctx context.Context, sel Selector) (el Element, found bool, err error)
	FindAll(ctx context.Context, sel Selector) ([]Element, error)
	PageSource(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	// ExecuteScript runs js as the body of a function; its arguments are
	// available as arguments[i]. Elements returned by Find may be passed.
	ExecuteScript(ctx context.Context, js string, args ...any) (any, error)
	// ConsoleLogs returns the console entries accumulated since the last
	// call and clears the buffer.
	ConsoleLogs() []models.ConsoleEntry
	Close() error
}

type Element interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	Find(ctx context.Context, sel Selector) (el Element, found bool, err error)
}

type Options struct {
	Name          string
	Headless      bool
	WindowWidth   int
	WindowHeight  int
	ActionTimeout time.Duration
	BinaryPath    string
}

// ErrorEntries keeps the error level entries of logs.
func ErrorEntries(logs []models.ConsoleEntry) []models.ConsoleEntry {
	errs := []models.ConsoleEntry{}
	for _, e := range logs {
		if e.Level == models.ConsoleLevelError {
			errs = append(errs, e)
		}
	}
	return errs
}
