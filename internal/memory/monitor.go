package memory

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"mytube/internal/logging"
	"mytube/internal/metrics"
)

// Config controls the Monitor.
type Config struct {
	// LimitBytes is the reference limit; 0 uses GOMEMLIMIT.
	LimitBytes int64
	// PauseAt pauses gated work when heap use reaches this fraction of the limit.
	PauseAt float64
	// ResumeAt resumes gated work once heap use falls below this fraction.
	ResumeAt float64
	// CheckInterval is the sampling period.
	CheckInterval time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		PauseAt:       0.85,
		ResumeAt:      0.7,
		CheckInterval: 5 * time.Second,
	}
}

// Monitor samples heap usage and holds back scan workers while the process
// is close to its memory limit. Without a limit it never pauses.
type Monitor struct {
	cfg      Config
	limit    int64
	clock    clockwork.Clock
	readHeap func() uint64

	mu      sync.Mutex
	current uint64
	paused  bool
	resume  chan struct{}

	stop    chan struct{}
	done    chan struct{}
	started bool
}

// NewMonitor creates a Monitor. A nil clock uses the real clock.
func NewMonitor(cfg Config, clock clockwork.Clock) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	limit := cfg.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < math.MaxInt64 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit, backpressure disabled")
	} else {
		logging.Info("Memory monitor: pausing scans above %.0f%% of %s", cfg.PauseAt*100, FormatBytes(limit))
	}

	return &Monitor{
		cfg:      cfg,
		limit:    limit,
		clock:    clock,
		readHeap: heapAlloc,
		resume:   make(chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins sampling. It does nothing without a limit.
func (m *Monitor) Start() {
	if m.limit == 0 || m.cfg.CheckInterval <= 0 {
		return
	}
	m.started = true
	go m.loop()
}

// Stop ends sampling and releases any waiters.
func (m *Monitor) Stop() {
	close(m.stop)
	if m.started {
		<-m.done
	}
}

func (m *Monitor) loop() {
	defer close(m.done)
	ticker := m.clock.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.check()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.readHeap()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case !m.paused && usage >= m.cfg.PauseAt:
		logging.Warn("Memory critical (%.1f%% of limit), pausing scan work", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryPausesTotal.Inc()
		go runtime.GC()
	case m.paused && usage < m.cfg.ResumeAt:
		logging.Info("Memory recovered (%.1f%% of limit), resuming scan work", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// Wait blocks while work is paused. It returns ctx.Err() if ctx ends first
// and nil once work may proceed or the monitor is stopped.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return nil
	}
	resume := m.resume
	m.mu.Unlock()

	select {
	case <-resume:
		return nil
	case <-m.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether gated work is currently held back.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Usage returns the last sampled heap use as a fraction of the limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.current) / float64(m.limit)
}
