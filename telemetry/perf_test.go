package telemetry

import (
	"math"
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhaseBroadPhase)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseConstraints)
		time.Sleep(200 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration")
	}
	if stats.PhaseAvg[PhaseBroadPhase] <= 0 {
		t.Error("expected broad_phase to be tracked")
	}
	if stats.PhaseAvg[PhaseConstraints] <= 0 {
		t.Error("expected constraints to be tracked")
	}
	if stats.PhaseAvg[PhaseFluid] != 0 {
		t.Error("expected untouched phase to stay zero")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartStep()
		pc.StartPhase(PhasePredict)
		pc.EndStep()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration after window filled")
	}
	if stats.StepsPerSecond <= 0 {
		t.Error("expected positive steps per second")
	}
}

// fakeClock advances only when told to.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)
	clock := &fakeClock{now: time.Unix(0, 0)}
	pc.SetClock(clock.Now)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhasePredict)
		clock.Advance(100 * time.Microsecond)
		pc.StartPhase(PhaseFluid)
		clock.Advance(300 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	if got := stats.PhasePct[PhasePredict]; math.Abs(got-25) > 1e-9 {
		t.Errorf("predict = %v%%, want 25%%", got)
	}
	if got := stats.PhasePct[PhaseFluid]; math.Abs(got-75) > 1e-9 {
		t.Errorf("fluid = %v%%, want 75%%", got)
	}
	if stats.AvgStepDuration != 400*time.Microsecond {
		t.Errorf("avg step = %v, want 400µs", stats.AvgStepDuration)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()
	if stats.AvgStepDuration != 0 {
		t.Error("expected zero avg step duration for empty collector")
	}
}

func TestPerfCollector_Nil(t *testing.T) {
	var pc *PerfCollector

	pc.StartStep()
	pc.StartPhase(PhaseBroadPhase)
	pc.EndPhase()
	pc.EndStep()
	pc.RecordFrame()
	if stats := pc.Stats(); stats.AvgStepDuration != 0 {
		t.Error("expected zero stats from nil collector")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()

	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	if stats.FPS <= 0 || stats.FPS > 80 {
		t.Errorf("expected FPS in (0, 80] with 16ms frame time, got %v", stats.FPS)
	}
}

func TestPhaseString(t *testing.T) {
	if got := PhaseConstraints.String(); got != "constraints" {
		t.Errorf("PhaseConstraints.String() = %q", got)
	}
	if got := PhaseCount.String(); got != "unknown" {
		t.Errorf("PhaseCount.String() = %q", got)
	}
}
