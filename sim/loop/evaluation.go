package loop

import (
	"time"

	"github.com/aipp-t/thermal-sim/sim/trace"
)

// EvaluationResult bundles all outputs from one simulation run.
type EvaluationResult struct {
	RunID    string
	Strategy string
	Trace    *trace.RunTrace
	Summary  *trace.RunSummary
	Err      error // fatal violation, cancellation or deadline miss; nil on success

	SimTicks int64         // completed ticks
	WallTime time.Duration // wall-clock duration of Run()
}

// NewEvaluationResult constructs an EvaluationResult.
// tr and err may be nil.
func NewEvaluationResult(runID, strategy string, tr *trace.RunTrace, summary *trace.RunSummary, simTicks int64, wallTime time.Duration, err error) *EvaluationResult {
	return &EvaluationResult{
		RunID:    runID,
		Strategy: strategy,
		Trace:    tr,
		Summary:  summary,
		Err:      err,
		SimTicks: simTicks,
		WallTime: wallTime,
	}
}

// Failed reports whether the run ended early or breached a safety limit.
func (r *EvaluationResult) Failed() bool {
	return r.Err != nil || r.Summary == nil || !r.Summary.Passed()
}
