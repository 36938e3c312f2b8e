package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/config"
)

// Constructor starts a new session of one browser engine.
type Constructor func(ctx context.Context, opts Options) (Session, error)

// Factory maps engine names to their constructor. The engine is picked once,
// from configuration; nothing downstream knows which one is running.
type Factory struct {
	backends map[string]Constructor
}

func NewFactory() *Factory {
	return &Factory{backends: map[string]Constructor{}}
}

func (f *Factory) Register(driver string, c Constructor) *Factory {
	f.backends[driver] = c
	return f
}

func (f *Factory) Drivers() []string {
	names := make([]string, 0, len(f.backends))
	for n := range f.backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OptionsFrom derives the backend options for session name from cfg.
func OptionsFrom(cfg config.Browser, name string) Options {
	return Options{
		Name:          name,
		Headless:      cfg.Headless,
		WindowWidth:   cfg.WindowWidth,
		WindowHeight:  cfg.WindowHeight,
		ActionTimeout: cfg.ActionTimeout,
		BinaryPath:    cfg.BinaryPath,
	}
}

func (f *Factory) NewSession(ctx context.Context, cfg config.Browser, name string) (Session, error) {
	driver := cfg.Driver
	opts := OptionsFrom(cfg, name)
	c, ok := f.backends[driver]
	if !ok {
		return nil, fmt.Errorf("unknown browser driver %q (available: %s)", driver, strings.Join(f.Drivers(), ", "))
	}
	zap.S().Infow("starting browser session", "driver", driver, "session", opts.Name, "headless", opts.Headless)
	s, err := c(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s session %q: %w", driver, opts.Name, err)
	}
	return s, nil
}
