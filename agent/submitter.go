package agent

import (
	"context"
	"log"
	"sync"
	"time"

	"deploytrace/debug"
	"deploytrace/model"
)

// Submitter manages a queue of outgoing reports and delivers them to the
// server serially. Enqueueing never blocks the event watcher; when the
// queue is full, reports are dropped and the periodic resync fills the gap.
type Submitter struct {
	reports     chan *model.Report
	client      *Client
	debugConfig *debug.DebugConfig
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewSubmitter creates a submitter and starts its delivery worker.
func NewSubmitter(client *Client, debugConfig *debug.DebugConfig) *Submitter {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Submitter{
		reports:     make(chan *model.Report, 100),
		client:      client,
		debugConfig: debugConfig,
		ctx:         ctx,
		cancel:      cancel,
	}

	s.wg.Add(1)
	go s.worker()

	log.Println("Report submitter initialized")
	return s
}

// Enqueue adds a report to the delivery queue.
// Returns immediately without blocking.
func (s *Submitter) Enqueue(report *model.Report) {
	select {
	case s.reports <- report:
		if s.debugConfig != nil {
			s.debugConfig.SetQueueDepth(len(s.reports))
		}
	case <-s.ctx.Done():
		log.Println("Submitter shutting down, cannot enqueue report")
	default:
		log.Printf("Warning: report queue is full, dropping %s report for %s",
			report.Event.Status, shortID(report.Event.ID))
	}
}

// worker delivers reports from the queue serially (one at a time)
func (s *Submitter) worker() {
	defer s.wg.Done()

	log.Println("Report delivery worker started")

	for {
		select {
		case report := <-s.reports:
			s.deliver(report)
			if s.debugConfig != nil {
				s.debugConfig.SetQueueDepth(len(s.reports))
			}
		case <-s.ctx.Done():
			log.Println("Report delivery worker shutting down")
			return
		}
	}
}

func (s *Submitter) deliver(report *model.Report) {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	if err := s.client.SubmitReport(ctx, report); err != nil {
		log.Printf("Error delivering %s report for %s: %v",
			report.Event.Status, shortID(report.Event.ID), err)
		return
	}

	log.Printf("Delivered %s report for %s", report.Event.Status, shortID(report.Event.ID))
}

// Shutdown gracefully shuts down the queue, waiting for the current
// delivery to complete.
func (s *Submitter) Shutdown() {
	log.Println("Shutting down report submitter...")
	s.cancel()
	s.wg.Wait()
	log.Println("Report submitter shut down")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
