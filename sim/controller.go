package sim

// ProtectionState is the mode of the protection state machine.
type ProtectionState string

const (
	// StateNormal: no gating, no migration; both protections still evaluate.
	StateNormal ProtectionState = "NORMAL"
	// StateGated: flux gating factor below 1.0 on at least one zone.
	StateGated ProtectionState = "GATED"
	// StateMigrating: migration countdown active; gating may be active too.
	StateMigrating ProtectionState = "MIGRATING"
	// StateCooldown: workload evacuated, waiting for a stable temperature below target.
	StateCooldown ProtectionState = "COOLDOWN"
)

// ProtectionStates lists the states in their nominal cycle order.
var ProtectionStates = []ProtectionState{StateNormal, StateGated, StateMigrating, StateCooldown}

// Observation is what a Controller sees at the end of a tick.
type Observation struct {
	Tick         int64
	Temperatures []float64 // estimated (or simulated) zone temperatures
	Activity     []float64 // activity demanded for the next tick, per zone
}

// Decision is the controller's output for the next tick.
type Decision struct {
	Gating         []float64       // per-zone gating factor in [MinGating, 1]
	TTV            float64         // smallest time-to-violation across zones (s); +Inf when cooling
	HeatingRate    float64         // largest post-gating dT/dt across zones (°C/s)
	MigrationArmed bool            // migration latch armed on this tick
	Evacuated      bool            // workload evacuated on this tick
	State          ProtectionState // state after this tick's transition
}

// ControllerState is a snapshot of the state owned by a Controller.
type ControllerState struct {
	Mode      ProtectionState
	Gating    []float64
	Countdown int64 // ticks left before evacuation; 0 when not migrating
	Migrating bool
	Evacuated bool
}

// Controller decides gating and migration from the current estimate.
// Implementations own their state and mutate it only inside Decide.
type Controller interface {
	Name() string
	// Decide consumes the current tick's observation and returns the gating
	// the plant applies next tick. Errors only on invalid power-model input.
	Decide(obs Observation) (Decision, error)
	// ActivityOverride returns the residual activity forced after evacuation.
	ActivityOverride() (level float64, active bool)
	State() ControllerState
}

// Estimator produces a filtered zone-temperature estimate from noisy samples.
type Estimator interface {
	// Update runs one predict/correct cycle with the powers injected during the
	// tick and the measured temperatures, returning the new estimate.
	Update(powers PowerMap, measured []float64) []float64
	Estimate() []float64
}
