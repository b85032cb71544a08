package trace

import (
	"fmt"
	"io"
	"sort"
)

// tickLabel renders an event tick, or "never" for -1.
func tickLabel(tick int64, dt float64) string {
	if tick < 0 {
		return "never"
	}
	return fmt.Sprintf("tick %d (%.2f ms)", tick, float64(tick)*dt*1e3)
}

// Print writes a human-readable report of the run. dt converts ticks to time.
func (s *RunSummary) Print(w io.Writer, dt float64) {
	_, _ = fmt.Fprintf(w, "=== Run Summary: %s ===\n", s.Strategy)
	_, _ = fmt.Fprintf(w, "Run ID               : %s\n", s.RunID)
	_, _ = fmt.Fprintf(w, "Ticks                : %d\n", s.Ticks)
	_, _ = fmt.Fprintf(w, "Peak Temperature     : %.2f °C at %s\n", s.PeakTruth, tickLabel(s.PeakTruthTick, dt))
	_, _ = fmt.Fprintf(w, "Peak Estimate        : %.2f °C\n", s.PeakEstimate)
	_, _ = fmt.Fprintf(w, "Peak Flux            : %.1f W/cm²\n", s.PeakFlux)
	_, _ = fmt.Fprintf(w, "Min CHF Margin       : %.2f %%\n", s.MinCHFMargin)
	_, _ = fmt.Fprintf(w, "Final Gradient       : %.2f °C\n", s.FinalGradient)
	_, _ = fmt.Fprintf(w, "Estimator MAE        : %.3f °C (steady state %.3f °C, p95 %.3f °C)\n",
		s.MAE, s.SteadyStateMAE, s.EstimatorError.P95)
	_, _ = fmt.Fprintf(w, "Gating               : min %.2f, mean %.2f\n", s.Gating.Min, s.Gating.Mean)
	_, _ = fmt.Fprintf(w, "Migration Armed      : %s\n", tickLabel(s.ArmedTick, dt))
	_, _ = fmt.Fprintf(w, "Workload Evacuated   : %s\n", tickLabel(s.EvacuatedTick, dt))
	_, _ = fmt.Fprintf(w, "Critical Trip        : %s\n", tickLabel(s.TripTick, dt))
	if s.Fatal {
		_, _ = fmt.Fprintf(w, "Physical Violation   : %s\n", s.FatalDetail)
	}

	states := make([]string, 0, len(s.StateTicks))
	for state := range s.StateTicks {
		states = append(states, state)
	}
	sort.Strings(states)
	for _, state := range states {
		_, _ = fmt.Fprintf(w, "  %-18s : %d ticks\n", state, s.StateTicks[state])
	}

	verdict := "FAIL"
	if s.Passed() {
		verdict = "PASS"
	}
	_, _ = fmt.Fprintf(w, "Verdict              : %s\n", verdict)
}

// PrintSensitivity writes the CHF sensitivity table.
func PrintSensitivity(w io.Writer, peakFlux float64, rows []SensitivityRow) {
	_, _ = fmt.Fprintf(w, "=== CHF Sensitivity (peak flux %.1f W/cm²) ===\n", peakFlux)
	for _, r := range rows {
		verdict := "FAIL"
		if r.Pass {
			verdict = "PASS"
		}
		_, _ = fmt.Fprintf(w, "CHF %6.0f W/cm² : margin %7.2f %%  %s\n", r.CHFLimit, r.Margin, verdict)
	}
}
