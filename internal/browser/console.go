package browser

import (
	"sync"

	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

// ConsoleBuffer accumulates console entries pushed by a backend's event
// listener goroutine until they are drained by the harness.
type ConsoleBuffer struct {
	mu      sync.Mutex
	entries []models.ConsoleEntry
}

func (b *ConsoleBuffer) Add(e models.ConsoleEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
}

func (b *ConsoleBuffer) Drain() []models.ConsoleEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.entries
	b.entries = nil
	return out
}
