// Package status exposes the most recent cycle status to external observers.
package status

import (
	"sync"

	"ebay_watcher/internal/model"
)

// Publisher holds the current cycle status snapshot. Safe for concurrent
// use; only the engine writes, any observer may read.
type Publisher struct {
	mu      sync.RWMutex
	current model.CycleStatus
	set     bool
}

// NewPublisher creates an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish replaces the current snapshot.
func (p *Publisher) Publish(st model.CycleStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = st
	p.set = true
}

// Current returns the latest snapshot. The second return value is false
// until the first Publish.
func (p *Publisher) Current() (model.CycleStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.set
}
