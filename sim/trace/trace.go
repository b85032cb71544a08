package trace

// TraceLevel controls how much of every tick is kept.
type TraceLevel string

const (
	// TraceLevelScalars keeps per-tick scalars only (default).
	TraceLevelScalars TraceLevel = "scalars"
	// TraceLevelMaps additionally keeps the per-zone truth, estimate and gating maps.
	TraceLevelMaps TraceLevel = "maps"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelScalars: true,
	TraceLevelMaps:    true,
	"":                true, // empty defaults to scalars
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level    TraceLevel
	CHFLimit float64 // W/cm², for sensitivity reporting
	Critical float64 // °C, operational trip threshold
}

// RunTrace collects tick and event records during one simulation run.
type RunTrace struct {
	Config   TraceConfig
	RunID    string
	Strategy string
	Ticks    []TickRecord
	Events   []EventRecord
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace(config TraceConfig, runID, strategy string) *RunTrace {
	return &RunTrace{
		Config:   config,
		RunID:    runID,
		Strategy: strategy,
		Ticks:    make([]TickRecord, 0),
		Events:   make([]EventRecord, 0),
	}
}

// KeepMaps reports whether per-zone maps should be attached to tick records.
func (rt *RunTrace) KeepMaps() bool {
	return rt.Config.Level == TraceLevelMaps
}

// RecordTick appends a tick record.
func (rt *RunTrace) RecordTick(record TickRecord) {
	rt.Ticks = append(rt.Ticks, record)
}

// RecordEvent appends an event record.
func (rt *RunTrace) RecordEvent(record EventRecord) {
	rt.Events = append(rt.Events, record)
}

// FirstEvent returns the earliest event of the given kind.
func (rt *RunTrace) FirstEvent(kind EventKind) (EventRecord, bool) {
	for _, e := range rt.Events {
		if e.Kind == kind {
			return e, true
		}
	}
	return EventRecord{}, false
}
