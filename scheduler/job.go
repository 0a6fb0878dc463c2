package scheduler

import (
	"context"
	"math/rand"
	"time"
)

// Job is a recurring background task, such as the agent's container
// resync against the traceability server.
type Job interface {
	// Name identifies the job within a scheduler.
	Name() string

	// Run performs one execution. It must honor ctx cancellation.
	Run(ctx context.Context) error
}

// Schedule decides when a job fires next.
type Schedule interface {
	Next(after time.Time) time.Time
}

// JobConfig controls how a registered job is executed.
type JobConfig struct {
	Enabled bool

	// Timeout bounds one execution. Zero means unbounded.
	Timeout time.Duration
}

// IntervalSchedule fires at a fixed interval, optionally spread by a
// random jitter so a fleet of agents does not resync against the server
// all at once.
type IntervalSchedule struct {
	interval time.Duration
	jitter   time.Duration
}

// NewIntervalSchedule returns a schedule firing every interval.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{interval: interval}
}

// NewIntervalScheduleWithJitter returns a schedule firing every interval
// plus a random delay in [0, jitter).
func NewIntervalScheduleWithJitter(interval, jitter time.Duration) *IntervalSchedule {
	return &IntervalSchedule{interval: interval, jitter: jitter}
}

// Next returns the time of the following run.
func (s *IntervalSchedule) Next(after time.Time) time.Time {
	wait := s.interval
	if s.jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(s.jitter)))
	}
	return after.Add(wait)
}
