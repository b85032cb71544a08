package trace

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	// GIVEN no trace
	// WHEN summarized
	s := Summarize(nil)

	// THEN counts are zero and event ticks report never
	assert.Equal(t, 0, s.Ticks)
	assert.Equal(t, int64(-1), s.TripTick)
	assert.Equal(t, int64(-1), s.ArmedTick)
	assert.Equal(t, int64(-1), s.EvacuatedTick)
	assert.False(t, s.Fatal)
	assert.Empty(t, s.StateTicks)
	assert.False(t, s.Passed(), "an empty run cannot pass")
}

func TestSummarize_PopulatedTrace_PeaksAndEvents(t *testing.T) {
	// GIVEN four ticks with a known peak and events
	rt := NewRunTrace(TraceConfig{}, "run-7", "predictive")
	rt.RecordTick(TickRecord{Tick: 0, MaxTruth: 60, MaxEstimate: 61, MeanAbsError: 1.0, PeakFlux: 200, CHFMargin: 50, MinGating: 1, State: "NORMAL"})
	rt.RecordTick(TickRecord{Tick: 1, MaxTruth: 90, MaxEstimate: 89, MeanAbsError: 0.5, PeakFlux: 280, CHFMargin: 30, MinGating: 0.6, State: "GATED"})
	rt.RecordTick(TickRecord{Tick: 2, MaxTruth: 80, MaxEstimate: 80, MeanAbsError: 0.2, PeakFlux: 250, CHFMargin: 37.5, MinGating: 0.7, State: "GATED"})
	rt.RecordTick(TickRecord{Tick: 3, MaxTruth: 70, MaxEstimate: 70, MeanAbsError: 0.1, PeakFlux: 100, CHFMargin: 75, MinGating: 1, State: "NORMAL", Gradient: 4})
	rt.RecordEvent(EventRecord{Tick: 1, Kind: EventTransition})
	rt.RecordEvent(EventRecord{Tick: 1, Kind: EventArmed})
	rt.RecordEvent(EventRecord{Tick: 3, Kind: EventEvacuated})
	rt.RecordEvent(EventRecord{Tick: 3, Kind: EventTransition})

	// WHEN summarized
	s := Summarize(rt)

	// THEN peaks, minima and event ticks match
	assert.Equal(t, 4, s.Ticks)
	assert.Equal(t, 90.0, s.PeakTruth)
	assert.Equal(t, int64(1), s.PeakTruthTick)
	assert.Equal(t, 89.0, s.PeakEstimate)
	assert.Equal(t, 280.0, s.PeakFlux)
	assert.Equal(t, 30.0, s.MinCHFMargin)
	assert.Equal(t, 4.0, s.FinalGradient)
	assert.InDelta(t, 0.45, s.MAE, 1e-12)
	assert.InDelta(t, 0.1, s.SteadyStateMAE, 1e-12)
	assert.Equal(t, 0.6, s.Gating.Min)
	assert.Equal(t, int64(1), s.ArmedTick)
	assert.Equal(t, int64(3), s.EvacuatedTick)
	assert.Equal(t, int64(-1), s.TripTick)
	assert.Equal(t, 2, s.Transitions)
	assert.Equal(t, map[string]int{"NORMAL": 2, "GATED": 2}, s.StateTicks)
	assert.True(t, s.Passed())
}

func TestSummarize_TripOrFatal_FailsVerdict(t *testing.T) {
	tests := []struct {
		name  string
		event EventRecord
	}{
		{"trip", EventRecord{Tick: 2, Kind: EventTrip}},
		{"fatal", EventRecord{Tick: 2, Kind: EventFatal, Detail: "zone 0 at 1500 °C"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a healthy run with one failure event
			rt := NewRunTrace(TraceConfig{}, "run", "reactive")
			rt.RecordTick(TickRecord{Tick: 0, MaxTruth: 60, CHFMargin: 60})
			rt.RecordEvent(tc.event)

			// WHEN summarized
			s := Summarize(rt)

			// THEN the verdict fails
			assert.False(t, s.Passed())
		})
	}
}

func TestSummarize_LowMargin_FailsVerdict(t *testing.T) {
	// GIVEN a run whose margin dips below the pass threshold
	rt := NewRunTrace(TraceConfig{}, "run", "unmanaged")
	rt.RecordTick(TickRecord{Tick: 0, MaxTruth: 60, CHFMargin: 19.9})

	// THEN it fails
	assert.False(t, Summarize(rt).Passed())
}

func TestNewDistribution_KnownValues(t *testing.T) {
	// GIVEN values 1..5 in arbitrary order
	d := NewDistribution([]float64{5, 1, 3, 2, 4})

	// THEN summary statistics are exact and quantiles interpolate the empirical CDF
	assert.Equal(t, 5, d.Count)
	assert.Equal(t, 3.0, d.Mean)
	assert.InDelta(t, 2.5, d.P50, 1e-12)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 5.0, d.Max)
	assert.InDelta(t, 4.75, d.P95, 1e-12)
	assert.InDelta(t, 4.95, d.P99, 1e-12)
}

func TestNewDistribution_Empty_ZeroValue(t *testing.T) {
	assert.Equal(t, Distribution{}, NewDistribution(nil))
}

func TestCHFSensitivity_MarginsAcrossLimits(t *testing.T) {
	// GIVEN a peak flux of 240 W/cm²
	rows := CHFSensitivity(240, []float64{200, 300, 400})

	// THEN margins follow (1 − flux/CHF) × 100 and pass only at ≥ 20 %
	require.Len(t, rows, 3)
	assert.InDelta(t, -20.0, rows[0].Margin, 1e-9)
	assert.False(t, rows[0].Pass)
	assert.InDelta(t, 20.0, rows[1].Margin, 1e-9)
	assert.True(t, rows[1].Pass)
	assert.InDelta(t, 40.0, rows[2].Margin, 1e-9)
	assert.True(t, rows[2].Pass)
}

func TestRunSummary_Print_ContainsVerdictAndEvents(t *testing.T) {
	// GIVEN a tripped run
	rt := NewRunTrace(TraceConfig{}, "run-3", "reactive")
	rt.RecordTick(TickRecord{Tick: 0, MaxTruth: 110, CHFMargin: -10, State: "MIGRATING", TTV: math.Inf(1)})
	rt.RecordEvent(EventRecord{Tick: 0, Kind: EventTrip})

	// WHEN printed
	var buf bytes.Buffer
	Summarize(rt).Print(&buf, 1e-4)
	PrintSensitivity(&buf, 300, CHFSensitivity(300, DefaultCHFLimits))

	// THEN the report names the strategy, trip and verdict
	out := buf.String()
	assert.Contains(t, out, "Run Summary: reactive")
	assert.Contains(t, out, "Critical Trip        : tick 0")
	assert.Contains(t, out, "Verdict              : FAIL")
	assert.Contains(t, out, "MIGRATING")
	assert.Contains(t, out, "CHF Sensitivity")
}
