package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one training generation.
const (
	PhaseEvaluate   = "evaluate"
	PhaseRank       = "rank"
	PhaseSmooth     = "smooth"
	PhaseCheckpoint = "checkpoint"
	PhaseReproduce  = "reproduce"
)

var phases = []string{PhaseEvaluate, PhaseRank, PhaseSmooth, PhaseCheckpoint, PhaseReproduce}

// PerfCollector times the phases of a generation and keeps a rolling
// window of samples for throughput reporting.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	current    map[string]time.Duration
	genStart   time.Time
	phaseStart time.Time
	lastPhase  string
}

// PerfSample holds timing data for one generation.
type PerfSample struct {
	Total  time.Duration
	Phases map[string]time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize generations.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
		current:    make(map[string]time.Duration),
	}
}

// StartGeneration begins timing a new generation.
func (p *PerfCollector) StartGeneration() {
	p.genStart = time.Now()
	p.current = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.current[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndGeneration closes the running phase and records the sample.
func (p *PerfCollector) EndGeneration() PerfSample {
	now := time.Now()
	if p.lastPhase != "" {
		p.current[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	sample := PerfSample{Total: now.Sub(p.genStart), Phases: p.current}
	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	return sample
}

// PerfStats holds aggregated timing over the window.
type PerfStats struct {
	AvgGeneration time.Duration
	MaxGeneration time.Duration
	PhasePct      map[string]float64
	GensPerMinute float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{PhasePct: make(map[string]float64)}
	}

	var total, maxGen time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.Total
		if s.Total > maxGen {
			maxGen = s.Total
		}
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	pct := make(map[string]float64, len(phaseSum))
	for phase, d := range phaseSum {
		if total > 0 {
			pct[phase] = float64(d) / float64(total) * 100
		}
	}

	avg := total / time.Duration(p.sampleCount)
	var perMin float64
	if avg > 0 {
		perMin = float64(time.Minute) / float64(avg)
	}

	return PerfStats{
		AvgGeneration: avg,
		MaxGeneration: maxGen,
		PhasePct:      pct,
		GensPerMinute: perMin,
	}
}

// LogStats logs performance statistics to l.
func (s PerfStats) LogStats(l *slog.Logger) {
	attrs := []any{
		"avg_gen_ms", s.AvgGeneration.Milliseconds(),
		"max_gen_ms", s.MaxGeneration.Milliseconds(),
		"gens_per_min", s.GensPerMinute,
	}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	l.Info("perf", attrs...)
}
