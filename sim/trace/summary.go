package trace

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MarginPassThreshold is the minimum CHF margin (%) a run must keep to pass.
const MarginPassThreshold = 20.0

// Distribution summarises one per-tick metric over a run.
type Distribution struct {
	Mean  float64
	P50   float64
	P95   float64
	P99   float64
	Min   float64
	Max   float64
	Count int
}

// NewDistribution summarises values; quantiles interpolate the empirical CDF.
// Empty input yields the zero value.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Distribution{
		Mean:  stat.Mean(sorted, nil),
		P50:   stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		P95:   stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		P99:   stat.Quantile(0.99, stat.LinInterp, sorted, nil),
		Min:   floats.Min(sorted),
		Max:   floats.Max(sorted),
		Count: len(sorted),
	}
}

// RunSummary aggregates statistics from a RunTrace.
// Tick fields are -1 when the event never happened.
type RunSummary struct {
	RunID    string
	Strategy string
	Ticks    int

	PeakTruth     float64
	PeakTruthTick int64
	PeakEstimate  float64
	PeakFlux      float64
	MinCHFMargin  float64
	FinalGradient float64

	MAE            float64 // mean of per-tick MAE over the whole run
	SteadyStateMAE float64 // same, over the last quarter of ticks
	EstimatorError Distribution
	Gating         Distribution // per-tick minimum gating factor

	TripTick      int64
	ArmedTick     int64
	EvacuatedTick int64
	Fatal         bool
	FatalDetail   string
	Transitions   int
	StateTicks    map[string]int
}

// Passed reports whether the run stayed below the trip threshold, kept at
// least MarginPassThreshold CHF margin, and never violated physical bounds.
func (s *RunSummary) Passed() bool {
	return !s.Fatal && s.TripTick < 0 && s.Ticks > 0 && s.MinCHFMargin >= MarginPassThreshold
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *RunSummary {
	summary := &RunSummary{
		TripTick:      -1,
		ArmedTick:     -1,
		EvacuatedTick: -1,
		StateTicks:    make(map[string]int),
	}
	if rt == nil {
		return summary
	}
	summary.RunID = rt.RunID
	summary.Strategy = rt.Strategy
	summary.Ticks = len(rt.Ticks)

	if len(rt.Ticks) > 0 {
		summary.PeakTruth = math.Inf(-1)
		summary.PeakEstimate = math.Inf(-1)
		summary.MinCHFMargin = math.Inf(1)
		errs := make([]float64, len(rt.Ticks))
		gating := make([]float64, len(rt.Ticks))
		for i, r := range rt.Ticks {
			if r.MaxTruth > summary.PeakTruth {
				summary.PeakTruth = r.MaxTruth
				summary.PeakTruthTick = r.Tick
			}
			summary.PeakEstimate = math.Max(summary.PeakEstimate, r.MaxEstimate)
			summary.PeakFlux = math.Max(summary.PeakFlux, r.PeakFlux)
			summary.MinCHFMargin = math.Min(summary.MinCHFMargin, r.CHFMargin)
			summary.StateTicks[r.State]++
			errs[i] = r.MeanAbsError
			gating[i] = r.MinGating
		}
		summary.FinalGradient = rt.Ticks[len(rt.Ticks)-1].Gradient
		summary.MAE = stat.Mean(errs, nil)
		tail := errs[len(errs)-max(1, len(errs)/4):]
		summary.SteadyStateMAE = stat.Mean(tail, nil)
		summary.EstimatorError = NewDistribution(errs)
		summary.Gating = NewDistribution(gating)
	}

	for _, e := range rt.Events {
		switch e.Kind {
		case EventTrip:
			if summary.TripTick < 0 {
				summary.TripTick = e.Tick
			}
		case EventArmed:
			if summary.ArmedTick < 0 {
				summary.ArmedTick = e.Tick
			}
		case EventEvacuated:
			if summary.EvacuatedTick < 0 {
				summary.EvacuatedTick = e.Tick
			}
		case EventFatal:
			summary.Fatal = true
			summary.FatalDetail = e.Detail
		case EventTransition:
			summary.Transitions++
		}
	}
	return summary
}

// SensitivityRow is the CHF margin a run would have under one assumed limit.
type SensitivityRow struct {
	CHFLimit float64 // W/cm²
	Margin   float64 // %
	Pass     bool
}

// CHFSensitivity re-evaluates a run's peak flux against alternative CHF limits.
func CHFSensitivity(peakFlux float64, limits []float64) []SensitivityRow {
	rows := make([]SensitivityRow, 0, len(limits))
	for _, chf := range limits {
		margin := (1 - peakFlux/chf) * 100
		rows = append(rows, SensitivityRow{CHFLimit: chf, Margin: margin, Pass: margin >= MarginPassThreshold})
	}
	return rows
}

// DefaultCHFLimits are the limits swept by the sensitivity report (W/cm²).
var DefaultCHFLimits = []float64{200, 300, 400, 500, 600}
