// Package trace provides per-tick recording of a control-loop run.
// This package has no dependencies on sim/ or its sub-packages; it stores pure data types.
package trace

// TickRecord captures the outputs of one control tick.
type TickRecord struct {
	Tick         int64
	Time         float64 // seconds since start
	MaxTruth     float64 // hottest ground-truth zone (°C)
	MaxEstimate  float64 // hottest estimated zone (°C)
	MeanAbsError float64 // mean |estimate − truth| across zones (°C)
	Gradient     float64 // hottest minus coldest ground-truth zone (°C)
	MinGating    float64 // smallest gating factor applied this tick
	TotalPower   float64 // W injected this tick
	PeakFlux     float64 // largest zone flux this tick (W/cm²)
	CHFMargin    float64 // (1 − PeakFlux/CHF) × 100
	TTV          float64 // seconds; +Inf when cooling
	HeatingRate  float64 // largest predicted dT/dt (°C/s)
	State        string  // protection state after the decision

	// Per-zone maps, recorded only at TraceLevelMaps.
	Truth    []float64
	Estimate []float64
	Gating   []float64
}

// EventKind names a discrete control outcome.
type EventKind string

const (
	EventArmed      EventKind = "migration-armed"
	EventEvacuated  EventKind = "workload-evacuated"
	EventTrip       EventKind = "critical-trip"
	EventFatal      EventKind = "physical-violation"
	EventTransition EventKind = "transition"
)

// EventRecord captures a discrete outcome (migration, trip, violation, state change).
type EventRecord struct {
	Tick   int64
	Time   float64
	Kind   EventKind
	Detail string
}
