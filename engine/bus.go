// Package engine implements report ingestion and the query path over
// deployment history.
package engine

import (
	"log"
	"sync"

	"deploytrace/model"
)

// Listener receives ingestion notifications. Implementations must be
// idempotent; new-deployment notifications fire on every ingestion that
// carries a container snapshot, not only on first sight.
type Listener interface {
	OnReport(report *model.Report) error
	OnNewDeployment(containerID string) error
}

// Bus broadcasts notifications to an explicit list of listeners. Each
// listener invocation is isolated: a failing listener is logged and never
// prevents the others from running or propagates to the caller.
type Bus struct {
	mu        sync.Mutex
	listeners []Listener
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{}
}

// Register adds a listener. Registration order is broadcast order.
func (b *Bus) Register(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Bus) snapshot() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Listener, len(b.listeners))
	copy(out, b.listeners)
	return out
}

// FireReport broadcasts a fully ingested report.
func (b *Bus) FireReport(report *model.Report) {
	for _, l := range b.snapshot() {
		if err := l.OnReport(report); err != nil {
			log.Printf("Report listener error: %v", err)
		}
	}
}

// FireNewDeployment broadcasts a deployment observation.
func (b *Bus) FireNewDeployment(containerID string) {
	for _, l := range b.snapshot() {
		if err := l.OnNewDeployment(containerID); err != nil {
			log.Printf("Deployment listener error: %v", err)
		}
	}
}
