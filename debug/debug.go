// Package debug implements the traceability server's debug mode:
// request timing collection and verbose request logging.
package debug

import (
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of collected request statistics.
type Metrics struct {
	RequestCount    int64
	TotalDuration   time.Duration
	QueueDepth      int
	LastUpdated     time.Time
	EndpointMetrics map[string]*EndpointMetrics
}

// EndpointMetrics aggregates timings for one endpoint path.
type EndpointMetrics struct {
	Count         int64
	TotalDuration time.Duration
	LastAccess    time.Time
}

// DebugConfig gates debug behavior and accumulates request statistics
// while enabled. All methods are safe for concurrent use.
type DebugConfig struct {
	enabled bool

	mu            sync.RWMutex
	requestCount  int64
	totalDuration time.Duration
	queueDepth    int
	lastUpdated   time.Time
	endpoints     map[string]*EndpointMetrics
}

// NewDebugConfig creates a DebugConfig. The enabled flag is fixed for
// the lifetime of the process.
func NewDebugConfig(enabled bool) *DebugConfig {
	return &DebugConfig{
		enabled:   enabled,
		endpoints: make(map[string]*EndpointMetrics),
	}
}

// IsEnabled reports whether debug mode is on.
func (d *DebugConfig) IsEnabled() bool {
	return d.enabled
}

// RecordRequest folds one request's duration into the statistics.
func (d *DebugConfig) RecordRequest(endpoint string, duration time.Duration) {
	if !d.enabled {
		return
	}
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.requestCount++
	d.totalDuration += duration
	d.lastUpdated = now

	em := d.endpoints[endpoint]
	if em == nil {
		em = &EndpointMetrics{}
		d.endpoints[endpoint] = em
	}
	em.Count++
	em.TotalDuration += duration
	em.LastAccess = now
}

// GetMetrics returns a snapshot decoupled from the live counters.
func (d *DebugConfig) GetMetrics() *Metrics {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap := &Metrics{
		RequestCount:    d.requestCount,
		TotalDuration:   d.totalDuration,
		QueueDepth:      d.queueDepth,
		LastUpdated:     d.lastUpdated,
		EndpointMetrics: make(map[string]*EndpointMetrics, len(d.endpoints)),
	}
	for path, em := range d.endpoints {
		c := *em
		snap.EndpointMetrics[path] = &c
	}
	return snap
}

// SetQueueDepth records the current depth of the agent's submit queue.
func (d *DebugConfig) SetQueueDepth(depth int) {
	if !d.enabled {
		return
	}
	d.mu.Lock()
	d.queueDepth = depth
	d.mu.Unlock()
}

// ResetMetrics discards everything collected so far.
func (d *DebugConfig) ResetMetrics() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requestCount = 0
	d.totalDuration = 0
	d.queueDepth = 0
	d.lastUpdated = time.Time{}
	d.endpoints = make(map[string]*EndpointMetrics)
}
