package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 3; i++ {
		pc.StartGeneration()
		pc.StartPhase(PhaseEvaluate)
		time.Sleep(200 * time.Microsecond)
		pc.StartPhase(PhaseReproduce)
		time.Sleep(100 * time.Microsecond)
		sample := pc.EndGeneration()
		if sample.Phases[PhaseEvaluate] <= 0 {
			t.Error("evaluate phase not timed")
		}
	}

	stats := pc.Stats()
	if stats.AvgGeneration <= 0 {
		t.Error("expected positive average generation time")
	}
	if stats.GensPerMinute <= 0 {
		t.Error("expected positive throughput")
	}
	if _, ok := stats.PhasePct[PhaseEvaluate]; !ok {
		t.Error("evaluate phase missing from percentages")
	}
	var sum float64
	for _, pct := range stats.PhasePct {
		sum += pct
	}
	if sum > 100.0001 {
		t.Errorf("phase percentages sum to %v", sum)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(4)
	for i := 0; i < 9; i++ {
		pc.StartGeneration()
		pc.StartPhase(PhaseRank)
		pc.EndGeneration()
	}
	if pc.sampleCount != 4 {
		t.Errorf("sampleCount = %d, want 4", pc.sampleCount)
	}
	if pc.writeIndex != 9%4 {
		t.Errorf("writeIndex = %d, want %d", pc.writeIndex, 9%4)
	}
}

func TestPerfCollector_Empty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()
	if stats.AvgGeneration != 0 || stats.PhasePct == nil {
		t.Errorf("empty stats = %+v", stats)
	}
}
