// Package connectivity decides whether the backend is reachable.
//
// The Monitor probes the backend on an interval. A configurable number of
// consecutive failures flips the state to offline; a single success flips it
// back. Transitions are reported through a callback, which the daemon wires
// to the offline manager so reconnecting triggers a sync pass.
package connectivity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"equipqr/internal/config"
	"equipqr/internal/logging"
)

// Prober checks whether the backend answers.
type Prober interface {
	Ping(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Ping calls f.
func (f ProberFunc) Ping(ctx context.Context) error { return f(ctx) }

// Monitor tracks backend reachability.
type Monitor struct {
	prober    Prober
	interval  time.Duration
	timeout   time.Duration
	threshold int
	logger    *slog.Logger
	onChange  func(online bool)

	mu       sync.RWMutex
	online   bool
	known    bool
	failures int
	lastErr  error
	lastSeen time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logging.NewComponentLogger(logger, "connectivity")
	}
}

// WithOnChange registers the transition callback.
func WithOnChange(fn func(online bool)) Option {
	return func(m *Monitor) {
		m.onChange = fn
	}
}

// WithTiming overrides the probe interval, per-probe timeout, and failure threshold.
func WithTiming(interval, timeout time.Duration, threshold int) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
		if timeout > 0 {
			m.timeout = timeout
		}
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

// NewMonitor constructs a monitor. The state starts unknown; the first probe
// always reports a transition.
func NewMonitor(prober Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:    prober,
		interval:  15 * time.Second,
		timeout:   5 * time.Second,
		threshold: 2,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewFromConfig builds a monitor using the connectivity section of cfg.
func NewFromConfig(cfg *config.Config, prober Prober, logger *slog.Logger, onChange func(bool)) *Monitor {
	return NewMonitor(prober,
		WithLogger(logger),
		WithOnChange(onChange),
		WithTiming(cfg.ProbeInterval(), cfg.ProbeTimeout(), cfg.Connectivity.FailureThreshold),
	)
}

// Run probes immediately and then on every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.CheckNow(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow runs one probe, updates state, and returns the resulting state.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Ping(probeCtx)
	cancel()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return m.Online()
	}
	return m.record(err)
}

// Online reports the last known state. Unknown counts as offline.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// LastError returns the most recent probe failure, or nil once a probe succeeds.
func (m *Monitor) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Monitor) record(err error) bool {
	m.mu.Lock()
	previous, known := m.online, m.known
	if err == nil {
		m.failures = 0
		m.lastErr = nil
		m.lastSeen = time.Now()
		m.online = true
		m.known = true
	} else {
		m.failures++
		m.lastErr = err
		if m.failures >= m.threshold || !m.known {
			m.online = false
			m.known = true
		}
	}
	current := m.online
	changed := m.known && (!known || previous != current)
	failures := m.failures
	m.mu.Unlock()

	if err != nil {
		m.logger.Debug("backend probe failed",
			logging.Int("consecutive_failures", failures),
			logging.Error(err),
		)
	}
	if !changed {
		return current
	}
	if current {
		m.logger.Info("backend reachable")
	} else {
		logging.WarnWithContext(m.logger, "backend unreachable", "connectivity_lost",
			logging.Int("consecutive_failures", failures),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access and backend url"),
			logging.String(logging.FieldImpact, "queued changes wait until connectivity returns"),
		)
	}
	if m.onChange != nil {
		m.onChange(current)
	}
	return current
}
