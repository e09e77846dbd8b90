// internal/schedule/governor.go

// Package schedule bounds the number of simultaneous extraction tasks. The
// Governor re-tunes the bound from recent success/error counts and host
// resource pressure; the Queue gates task admission in FIFO order.
package schedule

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default governor tuning constants.
const (
	DefaultInitialBound = 4
	DefaultMaxBound     = 8
	DefaultMinBound     = 2
	DefaultWindow       = 30 * time.Second

	// errorBurstLimit is the error count within one window that forces a
	// bound decrease.
	errorBurstLimit = 5

	// successStreakLimit is the success count within one clean window that
	// allows a bound increase.
	successStreakLimit = 10

	// memoryPressureThreshold and loadPressureFraction define host
	// resource pressure.
	memoryPressureThreshold = 0.80
	loadPressureFraction    = 0.80
)

// GovernorConfig configures bound limits and the evaluation window.
type GovernorConfig struct {
	Initial int
	Max     int
	Min     int
	Window  time.Duration
}

// Governor holds the adaptive concurrency bound. It is the only mutable
// state shared across domain sessions; all access is serialized through its
// mutex. There is deliberately no package-level instance: callers construct
// one per run and pass it down.
type Governor struct {
	mu        sync.Mutex
	bound     int
	min       int
	max       int
	window    time.Duration
	successes int
	errors    int
	lastEval  time.Time

	probe  ResourceProbe
	now    func() time.Time
	logger *zap.Logger

	// onBoundChange is invoked (outside evaluation decisions, same lock)
	// whenever the bound moves, for metrics gauges.
	onBoundChange func(bound int)
}

// NewGovernor builds a Governor. A nil probe disables the resource-pressure
// signal; zero config fields get the defaults.
func NewGovernor(cfg GovernorConfig, probe ResourceProbe, logger *zap.Logger) *Governor {
	if cfg.Initial <= 0 {
		cfg.Initial = DefaultInitialBound
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMaxBound
	}
	if cfg.Min <= 0 {
		cfg.Min = DefaultMinBound
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Governor{
		bound:  cfg.Initial,
		min:    cfg.Min,
		max:    cfg.Max,
		window: cfg.Window,
		probe:  probe,
		now:    time.Now,
		logger: logger.Named("governor"),
	}
	g.lastEval = g.now()
	return g
}

// Bound returns the current concurrency bound.
func (g *Governor) Bound() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bound
}

// SetBoundChangeHook registers a callback fired on every bound adjustment.
func (g *Governor) SetBoundChangeHook(fn func(bound int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onBoundChange = fn
}

// RecordSuccess feeds one successful task completion into the governor and
// triggers an evaluation check.
func (g *Governor) RecordSuccess() {
	g.record(true)
}

// RecordError feeds one failed task completion into the governor and
// triggers an evaluation check.
func (g *Governor) RecordError() {
	g.record(false)
}

func (g *Governor) record(success bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if success {
		g.successes++
	} else {
		g.errors++
	}
	g.evaluateLocked()
}

// evaluateLocked re-tunes the bound at most once per window. Both counters
// reset on every evaluation.
func (g *Governor) evaluateLocked() {
	now := g.now()
	if now.Sub(g.lastEval) < g.window {
		return
	}
	g.lastEval = now

	pressured := g.underPressure()

	switch {
	case pressured || g.errors > errorBurstLimit:
		if g.bound > g.min {
			g.bound--
			g.logger.Info("decreasing concurrency bound",
				zap.Int("bound", g.bound),
				zap.Int("errors", g.errors),
				zap.Bool("resource_pressure", pressured),
			)
			g.notifyLocked()
		}
	case g.errors == 0 && g.successes > successStreakLimit:
		if g.bound < g.max {
			g.bound++
			g.logger.Info("increasing concurrency bound",
				zap.Int("bound", g.bound),
				zap.Int("successes", g.successes),
			)
			g.notifyLocked()
		}
	}

	g.successes = 0
	g.errors = 0
}

func (g *Governor) underPressure() bool {
	if g.probe == nil {
		return false
	}
	snap, err := g.probe.Snapshot()
	if err != nil {
		return false
	}
	if snap.MemoryUtilization > memoryPressureThreshold {
		return true
	}
	return snap.Cores > 0 && snap.Load1 > loadPressureFraction*float64(snap.Cores)
}

func (g *Governor) notifyLocked() {
	if g.onBoundChange != nil {
		g.onBoundChange(g.bound)
	}
}
