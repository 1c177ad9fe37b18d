package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Monitor observes engine availability. Readiness transitions from false to
// true exactly once, driven by whichever fires first: the periodic probe or an
// explicit NotifyInit call. There is no timeout and no degradation path; once
// ready the monitor stays ready.
type Monitor struct {
	proc     Processor
	interval time.Duration
	logger   *logrus.Logger

	mu        sync.Mutex
	ready     bool
	readyCh   chan struct{}
	stopCh    chan struct{}
	started   bool
	callbacks []func()
}

func NewMonitor(proc Processor, interval time.Duration, logger *logrus.Logger) *Monitor {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Monitor{
		proc:     proc,
		interval: interval,
		logger:   logger,
		readyCh:  make(chan struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Start probes immediately and, if the engine is not yet available, keeps
// polling on the configured interval until it is.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	if m.probe() {
		return
	}

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopCh:
				return
			case <-m.readyCh:
				return
			case <-ticker.C:
				if m.probe() {
					return
				}
			}
		}
	}()
}

func (m *Monitor) probe() bool {
	err := m.proc.Probe()
	if err != nil {
		m.logger.WithError(err).Debug("engine probe failed, will retry")
		return false
	}
	m.markReady("probe")
	return true
}

// NotifyInit is the one-shot initialization hook for the engine runtime. It
// flips readiness without waiting for the next poll tick.
func (m *Monitor) NotifyInit() {
	m.markReady("init callback")
}

func (m *Monitor) markReady(via string) {
	m.mu.Lock()
	if m.ready {
		m.mu.Unlock()
		return
	}
	m.ready = true
	close(m.readyCh)
	callbacks := m.callbacks
	m.callbacks = nil
	m.mu.Unlock()

	m.logger.WithField("via", via).Info("vision engine is ready")
	for _, fn := range callbacks {
		fn()
	}
}

// Ready reports whether the engine has become available.
func (m *Monitor) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// OnReady registers fn to run once when readiness flips. If the monitor is
// already ready, fn runs immediately on the calling goroutine.
func (m *Monitor) OnReady(fn func()) {
	m.mu.Lock()
	if m.ready {
		m.mu.Unlock()
		fn()
		return
	}
	m.callbacks = append(m.callbacks, fn)
	m.mu.Unlock()
}

// WaitReady blocks until the engine is ready or the context is done.
func (m *Monitor) WaitReady(ctx context.Context) error {
	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts polling. Readiness state is retained.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
}
