// Package monitor orchestrates the poll-transform-write pipeline: one
// repeating job per Pi-hole instance, each cycle fetching statistics,
// building points and writing them to the sink. Failures inside one
// instance's cycle never reach the scheduler loop or another instance.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/telemetrytools/pihole-influx/internal/pihole"
	"github.com/telemetrytools/pihole-influx/internal/points"
)

// State is the process lifecycle phase, observable via the status API.
type State string

const (
	StateStarting        State = "starting"
	StateVerifyingBucket State = "verifying_bucket"
	StateRunning         State = "running"
	StateStopping        State = "stopping"
	StateStopped         State = "stopped"
)

// Poller is the per-instance statistics surface the monitor drives.
// *pihole.Client implements it; tests inject fakes. Fetch methods
// return nil for any failure.
type Poller interface {
	Alias() string
	Address() string
	Hostname() string
	HasCredential() bool
	Authenticated() bool
	Authenticate(ctx context.Context) (string, error)
	Summary(ctx context.Context) *pihole.Summary
	TopClients(ctx context.Context, count int) *pihole.TopClients
	TopDomains(ctx context.Context, count int, blocked bool) *pihole.TopDomains
	Upstreams(ctx context.Context) *pihole.Upstreams
	History(ctx context.Context) *pihole.History
	Blocking(ctx context.Context) *pihole.BlockingStatus
}

// Writer is the narrow sink contract required by the monitor.
type Writer interface {
	EnsureBucket(ctx context.Context) error
	WriteBatch(ctx context.Context, pts []points.Point) error
}

// Config carries the core polling parameters.
type Config struct {
	Interval    time.Duration
	TopItems    int
	TopClients  int
	Granularity time.Duration
}

// InstanceStatus is one instance's cycle bookkeeping.
type InstanceStatus struct {
	Alias           string    `json:"alias"`
	Address         string    `json:"address"`
	Authenticated   bool      `json:"authenticated"`
	Cycles          uint64    `json:"cycles"`
	Failures        uint64    `json:"failures"`
	LastRun         time.Time `json:"last_run"`
	LastSuccess     bool      `json:"last_success"`
	LastPoints      int       `json:"last_points"`
	LastQueryMillis int64     `json:"last_query_millis"`
	LastWriteMillis int64     `json:"last_write_millis"`
}

// Status is a snapshot of the monitor for the status API.
type Status struct {
	State     State            `json:"state"`
	Interval  float64          `json:"interval_seconds"`
	Instances []InstanceStatus `json:"instances"`
}

// Monitor composes pollers, the point builder and the write sink into
// the run-forever loop.
type Monitor struct {
	cfg     Config
	sink    Writer
	pollers []Poller

	mu    sync.Mutex
	state State
	stats []InstanceStatus
}

// New builds a monitor over the given pollers and sink.
func New(cfg Config, sink Writer, pollers []Poller) *Monitor {
	stats := make([]InstanceStatus, len(pollers))
	for i, p := range pollers {
		stats[i] = InstanceStatus{Alias: p.Alias(), Address: p.Address()}
	}
	return &Monitor{
		cfg:     cfg,
		sink:    sink,
		pollers: pollers,
		state:   StateStarting,
		stats:   stats,
	}
}

// Run verifies the sink bucket, authenticates instances that carry a
// credential, then drives the scheduler until ctx is cancelled. A
// bucket verification failure is returned before any job is scheduled.
func (m *Monitor) Run(ctx context.Context) error {
	m.setState(StateVerifyingBucket)
	if err := m.sink.EnsureBucket(ctx); err != nil {
		m.setState(StateStopped)
		return err
	}

	for _, p := range m.pollers {
		if !p.HasCredential() || p.Authenticated() {
			continue
		}
		if _, err := p.Authenticate(ctx); err != nil {
			log.Printf("%v", err)
		}
	}

	m.setState(StateRunning)
	sched := NewScheduler(m.cfg.Granularity)
	for i, p := range m.pollers {
		idx, poller := i, p
		sched.Add(poller.Alias(), m.cfg.Interval, func(jobCtx context.Context) {
			m.runCycle(jobCtx, idx, poller)
		})
	}
	sched.Run(ctx)

	m.setState(StateStopping)
	m.setState(StateStopped)
	return nil
}

// runCycle executes one instance's fetch-transform-write sequence. Any
// panic is contained here so one bad cycle cannot take down the
// scheduler or other instances' jobs.
func (m *Monitor) runCycle(ctx context.Context, idx int, p Poller) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] cycle aborted: %v", p.Alias(), r)
			m.record(idx, p, func(s *InstanceStatus) {
				s.Cycles++
				s.Failures++
				s.LastSuccess = false
			})
		}
	}()

	queryStart := time.Now()
	snap := points.Snapshot{
		Summary:             p.Summary(ctx),
		TopClients:          p.TopClients(ctx, m.cfg.TopClients),
		TopPermittedDomains: p.TopDomains(ctx, m.cfg.TopItems, false),
		TopBlockedDomains:   p.TopDomains(ctx, m.cfg.TopItems, true),
		Upstreams:           p.Upstreams(ctx),
		History:             p.History(ctx),
		Blocking:            p.Blocking(ctx),
	}
	queryMillis := time.Since(queryStart).Milliseconds()

	if snap.Empty() {
		log.Printf("[%s] no statistics available, skipping write", p.Alias())
		m.record(idx, p, func(s *InstanceStatus) {
			s.Cycles++
			s.Failures++
			s.LastRun = queryStart
			s.LastSuccess = false
			s.LastPoints = 0
			s.LastQueryMillis = queryMillis
		})
		return
	}
	log.Printf("[%s] queried successfully in %dms", p.Alias(), queryMillis)

	pts := points.Build(snap, p.Alias(), p.Hostname(), time.Now())

	writeStart := time.Now()
	err := m.sink.WriteBatch(ctx, pts)
	writeMillis := time.Since(writeStart).Milliseconds()
	if err != nil {
		log.Printf("[%s] error writing to InfluxDB: %v", p.Alias(), err)
	} else {
		log.Printf("[%s] wrote %d points to InfluxDB in %dms", p.Alias(), len(pts), writeMillis)
	}

	m.record(idx, p, func(s *InstanceStatus) {
		s.Cycles++
		if err != nil {
			s.Failures++
		}
		s.LastRun = queryStart
		s.LastSuccess = err == nil
		s.LastPoints = len(pts)
		s.LastQueryMillis = queryMillis
		s.LastWriteMillis = writeMillis
	})
}

// Status returns a copy of the monitor state for the status API.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	instances := make([]InstanceStatus, len(m.stats))
	copy(instances, m.stats)
	return Status{
		State:     m.state,
		Interval:  m.cfg.Interval.Seconds(),
		Instances: instances,
	}
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) record(idx int, p Poller, update func(*InstanceStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &m.stats[idx]
	s.Authenticated = p.Authenticated()
	update(s)
}
