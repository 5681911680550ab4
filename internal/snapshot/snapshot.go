// Package snapshot holds the latest derived state shared between the
// ingest path and the realtime fan-out. It is a single slot: writers
// replace it atomically, readers copy out.
package snapshot

import (
	"sync"

	"github.com/convei-labs/fusion/internal/store"
)

// Frame is the most recent video frame relayed from the sensing process.
type Frame struct {
	// Data is the JPEG frame, base64-encoded as received off the wire.
	Data      string  `json:"frame"`
	Timestamp float64 `json:"timestamp"`
}

// Cache is the lock-guarded single-slot latest-state cache.
type Cache struct {
	mu    sync.RWMutex
	state *store.UnifiedMetric
	frame *Frame
}

func NewCache() *Cache {
	return &Cache{}
}

// SetState replaces the latest unified state.
func (c *Cache) SetState(m *store.UnifiedMetric) {
	c.mu.Lock()
	c.state = m
	c.mu.Unlock()
}

// State returns a copy of the latest unified state, or nil when nothing
// has been ingested yet.
func (c *Cache) State() *store.UnifiedMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == nil {
		return nil
	}
	copied := *c.state
	return &copied
}

// SetFrame replaces the latest frame.
func (c *Cache) SetFrame(f *Frame) {
	c.mu.Lock()
	c.frame = f
	c.mu.Unlock()
}

// Frame returns a copy of the latest frame, or nil when none was received.
func (c *Cache) Frame() *Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frame == nil {
		return nil
	}
	copied := *c.frame
	return &copied
}
