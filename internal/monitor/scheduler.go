package monitor

import (
	"context"
	"time"
)

// DefaultGranularity is how often the scheduler checks for due jobs. A
// job whose due time falls between checks is delayed by at most this
// much.
const DefaultGranularity = time.Second

type job struct {
	name     string
	interval time.Duration
	next     time.Time
	run      func(context.Context)
}

// Scheduler drives fixed-interval repeating jobs from a single loop.
// Each due job runs to completion before the next due job is
// considered; there is no preemption and no shared mutable state
// between jobs.
type Scheduler struct {
	granularity time.Duration
	jobs        []*job
}

// NewScheduler returns a scheduler with the given due-check granularity.
func NewScheduler(granularity time.Duration) *Scheduler {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return &Scheduler{granularity: granularity}
}

// Add registers a repeating job. The first execution happens as soon as
// Run starts; later executions stay aligned to the interval from that
// point.
func (s *Scheduler) Add(name string, interval time.Duration, run func(context.Context)) {
	s.jobs = append(s.jobs, &job{name: name, interval: interval, run: run})
}

// Run executes every registered job immediately, then fires due jobs on
// each granularity tick until ctx is cancelled. Once ctx is done no new
// executions start; an in-flight job finishes on its own.
func (s *Scheduler) Run(ctx context.Context) {
	start := time.Now()
	for _, j := range s.jobs {
		j.next = start.Add(j.interval)
		if ctx.Err() != nil {
			return
		}
		j.run(ctx)
	}

	ticker := time.NewTicker(s.granularity)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, j := range s.jobs {
				if ctx.Err() != nil {
					return
				}
				if now.Before(j.next) {
					continue
				}
				// Keep the cadence anchored to registration time even
				// when a run overshoots its slot.
				for !j.next.After(now) {
					j.next = j.next.Add(j.interval)
				}
				j.run(ctx)
			}
		}
	}
}
