// internal/schedule/governor_test.go
package schedule

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubProbe returns a fixed resource snapshot.
type stubProbe struct {
	snap ResourceSnapshot
	err  error
}

func (s *stubProbe) Snapshot() (ResourceSnapshot, error) {
	return s.snap, s.err
}

// fakeClock advances manually.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGovernor(probe ResourceProbe) (*Governor, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	g := NewGovernor(GovernorConfig{}, probe, zap.NewNop())
	g.now = clock.Now
	g.lastEval = clock.now
	return g, clock
}

func TestGovernor_Defaults(t *testing.T) {
	g, _ := newTestGovernor(nil)
	if got := g.Bound(); got != 4 {
		t.Fatalf("initial bound = %d, want 4", got)
	}
}

func TestGovernor_IncreasesAfterCleanWindow(t *testing.T) {
	g, clock := newTestGovernor(nil)

	// 10 successes inside the window: no evaluation can fire yet.
	for i := 0; i < 10; i++ {
		g.RecordSuccess()
	}
	if got := g.Bound(); got != 4 {
		t.Fatalf("bound changed inside window: %d", got)
	}

	// The 11th success lands after the window elapses: exactly +1.
	clock.Advance(31 * time.Second)
	g.RecordSuccess()
	if got := g.Bound(); got != 5 {
		t.Fatalf("bound = %d, want 5", got)
	}
}

func TestGovernor_IncreaseCappedAtCeiling(t *testing.T) {
	g, clock := newTestGovernor(nil)

	for round := 0; round < 10; round++ {
		for i := 0; i < 11; i++ {
			g.RecordSuccess()
		}
		clock.Advance(31 * time.Second)
		g.RecordSuccess()
	}
	if got := g.Bound(); got != 8 {
		t.Fatalf("bound = %d, want ceiling 8", got)
	}
}

func TestGovernor_DecreasesOnErrorBurst(t *testing.T) {
	g, clock := newTestGovernor(nil)

	for i := 0; i < 5; i++ {
		g.RecordError()
	}
	clock.Advance(31 * time.Second)
	g.RecordError() // 6 errors in the window
	if got := g.Bound(); got != 3 {
		t.Fatalf("bound = %d, want 3", got)
	}
}

func TestGovernor_DecreaseFlooredAtMin(t *testing.T) {
	g, clock := newTestGovernor(nil)

	for round := 0; round < 10; round++ {
		for i := 0; i < 6; i++ {
			g.RecordError()
		}
		clock.Advance(31 * time.Second)
		g.RecordError()
	}
	if got := g.Bound(); got != 2 {
		t.Fatalf("bound = %d, want floor 2", got)
	}
}

func TestGovernor_BoundStaysWithinRange(t *testing.T) {
	g, clock := newTestGovernor(nil)

	outcomes := []bool{true, false, true, true, false, false, true}
	for round := 0; round < 50; round++ {
		for _, ok := range outcomes {
			if ok {
				g.RecordSuccess()
			} else {
				g.RecordError()
			}
			if b := g.Bound(); b < 2 || b > 8 {
				t.Fatalf("bound %d left [2, 8]", b)
			}
		}
		clock.Advance(31 * time.Second)
	}
}

func TestGovernor_MemoryPressureDecreases(t *testing.T) {
	probe := &stubProbe{snap: ResourceSnapshot{MemoryUtilization: 0.92, Load1: 0.1, Cores: 8}}
	g, clock := newTestGovernor(probe)

	g.RecordSuccess()
	clock.Advance(31 * time.Second)
	g.RecordSuccess()
	if got := g.Bound(); got != 3 {
		t.Fatalf("bound = %d, want 3 under memory pressure", got)
	}
}

func TestGovernor_LoadPressureDecreases(t *testing.T) {
	probe := &stubProbe{snap: ResourceSnapshot{MemoryUtilization: 0.2, Load1: 7.5, Cores: 8}}
	g, clock := newTestGovernor(probe)

	clock.Advance(31 * time.Second)
	g.RecordSuccess()
	if got := g.Bound(); got != 3 {
		t.Fatalf("bound = %d, want 3 under load pressure", got)
	}
}

func TestGovernor_MixedWindowNoChange(t *testing.T) {
	g, clock := newTestGovernor(nil)

	// Some successes plus a couple of errors: neither rule fires.
	for i := 0; i < 20; i++ {
		g.RecordSuccess()
	}
	g.RecordError()
	g.RecordError()
	clock.Advance(31 * time.Second)
	g.RecordSuccess()
	if got := g.Bound(); got != 4 {
		t.Fatalf("bound = %d, want unchanged 4", got)
	}
}

func TestGovernor_CountersResetEachEvaluation(t *testing.T) {
	g, clock := newTestGovernor(nil)

	// First window: 6 successes, carried into one evaluation.
	for i := 0; i < 6; i++ {
		g.RecordSuccess()
	}
	clock.Advance(31 * time.Second)
	g.RecordSuccess() // evaluates: 7 successes is not > 10, no change, reset

	// Second window: another 7 successes. If counters did not reset, the
	// cumulative 14 would wrongly trigger an increase.
	for i := 0; i < 6; i++ {
		g.RecordSuccess()
	}
	clock.Advance(31 * time.Second)
	g.RecordSuccess()
	if got := g.Bound(); got != 4 {
		t.Fatalf("bound = %d, want 4 (counters must reset per window)", got)
	}
}

func TestGovernor_BoundChangeHook(t *testing.T) {
	g, clock := newTestGovernor(nil)

	var observed []int
	g.SetBoundChangeHook(func(b int) { observed = append(observed, b) })

	for i := 0; i < 11; i++ {
		g.RecordSuccess()
	}
	clock.Advance(31 * time.Second)
	g.RecordSuccess()

	if len(observed) != 1 || observed[0] != 5 {
		t.Fatalf("hook observations = %v, want [5]", observed)
	}
}
