// Package scheduler runs recurring background jobs on interval
// schedules, such as the agent's periodic container resync.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// jobEntry is one registered job together with its schedule state.
type jobEntry struct {
	job      Job
	schedule Schedule
	config   JobConfig
	next     time.Time
	timer    *time.Timer
}

// Scheduler owns a set of jobs and drives their execution. Each job
// gets its own timer; executions of distinct jobs may overlap.
type Scheduler struct {
	mu      sync.RWMutex
	entries map[string]*jobEntry
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		entries: make(map[string]*jobEntry),
	}
}

// AddJob registers a job. Disabled jobs are accepted but never
// scheduled.
func (s *Scheduler) AddJob(job Job, schedule Schedule, config JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}
	if !config.Enabled {
		log.Printf("Scheduler: job %s disabled, not scheduling", name)
		return nil
	}

	e := &jobEntry{
		job:      job,
		schedule: schedule,
		config:   config,
		next:     schedule.Next(time.Now()),
	}
	s.entries[name] = e

	log.Printf("Scheduler: job %s registered, first run %s", name, e.next.Format(time.RFC3339))
	return nil
}

// Start arms a timer for every registered job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for name, e := range s.entries {
		s.arm(name, e)
	}

	log.Printf("Scheduler: started with %d jobs", len(s.entries))
	return nil
}

// arm sets the timer for the entry's next run. The caller holds s.mu.
func (s *Scheduler) arm(name string, e *jobEntry) {
	wait := time.Until(e.next)
	if wait < 0 {
		wait = 0
	}
	e.timer = time.AfterFunc(wait, func() {
		s.fire(name, e)
	})
}

// fire performs one scheduled execution and re-arms the timer.
func (s *Scheduler) fire(name string, e *jobEntry) {
	s.mu.RLock()
	stopped := s.ctx.Err() != nil
	s.mu.RUnlock()
	if stopped {
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	s.run(name, e)

	s.mu.Lock()
	e.next = e.schedule.Next(time.Now())
	log.Printf("Scheduler: job %s next run %s", name, e.next.Format(time.RFC3339))
	s.arm(name, e)
	s.mu.Unlock()
}

// run executes the job once, applying the configured timeout.
func (s *Scheduler) run(name string, e *jobEntry) {
	ctx := s.ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, e.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := e.job.Run(ctx)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("Scheduler: job %s failed after %v: %v", name, elapsed, err)
		return
	}
	log.Printf("Scheduler: job %s finished in %v", name, elapsed)
}

// Stop cancels the run context, stops all timers and waits for in-flight
// jobs, giving up after 30 seconds.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.ctx == nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}

	log.Printf("Scheduler: stopping")
	s.cancel()
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("Scheduler: stopped")
	case <-time.After(30 * time.Second):
		log.Printf("Scheduler: gave up waiting for running jobs")
	}
	return nil
}

// RunJobNow triggers one off-schedule execution without touching the
// job's timer. It returns as soon as the run is started.
func (s *Scheduler) RunJobNow(name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("Scheduler: job %s triggered manually", name)
		s.run(name, e)
	}()
	return nil
}

// GetJobs returns the names of all scheduled jobs.
func (s *Scheduler) GetJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// GetNextRun reports when a job will next fire.
func (s *Scheduler) GetNextRun(name string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok {
		return time.Time{}, fmt.Errorf("job %s not found", name)
	}
	return e.next, nil
}
