package harness

import (
	"sync"

	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

// ResourceTracker accumulates the records created during a run. Drain hands
// each registered handle out exactly once.
type ResourceTracker struct {
	mu      sync.Mutex
	handles []models.ResourceHandle
}

func NewResourceTracker() *ResourceTracker {
	return &ResourceTracker{}
}

func (t *ResourceTracker) Register(h models.ResourceHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles = append(t.handles, h)
}

func (t *ResourceTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

// Drain returns the handles in registration order and empties the tracker.
func (t *ResourceTracker) Drain() []models.ResourceHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.handles
	t.handles = nil
	return out
}
