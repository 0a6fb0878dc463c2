package metrics

import "sync/atomic"

// Counters holds the process-lifetime ingestion and query counters.
// All methods are safe on a nil receiver so callers can run without
// metrics wired up.
type Counters struct {
	reportsIngested atomic.Int64
	reportsDropped  atomic.Int64
	queries         atomic.Int64
}

// NewCounters creates a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// ReportIngested records one successfully ingested report.
func (c *Counters) ReportIngested() {
	if c == nil {
		return
	}
	c.reportsIngested.Add(1)
}

// ReportDropped records one dropped report.
func (c *Counters) ReportDropped() {
	if c == nil {
		return
	}
	c.reportsDropped.Add(1)
}

// Query records one history query.
func (c *Counters) Query() {
	if c == nil {
		return
	}
	c.queries.Add(1)
}

// ReportsIngested returns the ingested-report count.
func (c *Counters) ReportsIngested() int64 {
	if c == nil {
		return 0
	}
	return c.reportsIngested.Load()
}

// ReportsDropped returns the dropped-report count.
func (c *Counters) ReportsDropped() int64 {
	if c == nil {
		return 0
	}
	return c.reportsDropped.Load()
}

// Queries returns the query count.
func (c *Counters) Queries() int64 {
	if c == nil {
		return 0
	}
	return c.queries.Load()
}
