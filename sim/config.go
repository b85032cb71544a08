package sim

import "math"

// GridConfig describes the spatial discretisation of the die.
type GridConfig struct {
	Rows int `yaml:"rows"` // zone rows (must be >= 1)
	Cols int `yaml:"cols"` // zone columns (must be >= 1)
}

// Zones returns the number of zones in the grid.
func (g GridConfig) Zones() int {
	return g.Rows * g.Cols
}

// MaterialConfig groups the silicon constants used to derive thermal mass and
// lateral resistance.
type MaterialConfig struct {
	Density      float64 `yaml:"density"`       // kg/m³
	SpecificHeat float64 `yaml:"specific_heat"` // J/(kg·K)
	Conductivity float64 `yaml:"conductivity"`  // W/(m·K)
	Thickness    float64 `yaml:"thickness"`     // m
	DieSide      float64 `yaml:"die_side"`      // m, square die
}

// DieArea returns the die area in cm².
func (m MaterialConfig) DieArea() float64 {
	return m.DieSide * m.DieSide * 1e4
}

// CoolingConfig groups the heat-removal path parameters.
type CoolingConfig struct {
	Ambient               float64 `yaml:"ambient"`                 // coolant temperature (°C)
	SinkResistance        float64 `yaml:"sink_resistance"`         // K/W for the whole die (mesh model)
	BSPDN                 bool    `yaml:"bspdn"`                   // backside power delivery network
	SinglePhaseResistance float64 `yaml:"single_phase_resistance"` // K/W below the boiling point (two-phase model)
	TwoPhaseResistance    float64 `yaml:"two_phase_resistance"`    // K/W at or above the boiling point
	BoilingPoint          float64 `yaml:"boiling_point"`           // °C
	VaporFactor           float64 `yaml:"vapor_factor"`            // heat-removal multiplier above CHF, in (0,1]
}

// PowerConfig parameterises the power-demand function.
type PowerConfig struct {
	Voltage          float64 `yaml:"voltage"`            // supply voltage (V)
	NominalVoltage   float64 `yaml:"nominal_voltage"`    // V at which DynamicBase is specified
	DynamicBase      float64 `yaml:"dynamic_base"`       // W at activity 1.0 (single-zone model)
	LeakageCoeff     float64 `yaml:"leakage_coeff"`      // W/V² at the reference temperature
	LeakageTempCoeff float64 `yaml:"leakage_temp_coeff"` // 1/K exponent of thermal leakage
	ReferenceTemp    float64 `yaml:"reference_temp"`     // °C
}

// SafetyConfig holds the immutable protection constants of a run.
type SafetyConfig struct {
	CHFLimit         float64 `yaml:"chf_limit"`         // W/cm²
	SafetyFraction   float64 `yaml:"safety_fraction"`   // gating threshold as a fraction of CHFLimit
	CriticalTemp     float64 `yaml:"critical_temp"`     // operational trip (°C)
	TargetTemp       float64 `yaml:"target_temp"`       // soft-land target (°C)
	ReactiveTrigger  float64 `yaml:"reactive_trigger"`  // fixed trigger of the reactive strategy (°C)
	MigrationLatency float64 `yaml:"migration_latency"` // seconds
	MinGating        float64 `yaml:"min_gating"`        // floor of the gating factor, in (0,1]
	ResidualActivity float64 `yaml:"residual_activity"` // activity after evacuation
	StableRate       float64 `yaml:"stable_rate"`       // |dT/dt| below which cooldown may end (°C/s)
	MeltTemp         float64 `yaml:"melt_temp"`         // fatal upper bound (°C)
	FloorTemp        float64 `yaml:"floor_temp"`        // fatal lower bound (°C)
}

// SafetyThreshold returns the flux (W/cm²) above which gating engages.
func (s SafetyConfig) SafetyThreshold() float64 {
	return s.SafetyFraction * s.CHFLimit
}

// NoiseConfig groups sensor and filter noise parameters.
type NoiseConfig struct {
	SensorStdDev        float64 `yaml:"sensor_std_dev"`       // °C
	ProcessVariance     float64 `yaml:"process_variance"`     // diagonal of Q
	MeasurementVariance float64 `yaml:"measurement_variance"` // diagonal of R; 0 means SensorStdDev²
	InitialCovariance   float64 `yaml:"initial_covariance"`   // diagonal of P at startup
}

// MeasurementNoise returns the diagonal of R used by the estimator.
func (n NoiseConfig) MeasurementNoise() float64 {
	if n.MeasurementVariance > 0 {
		return n.MeasurementVariance
	}
	return n.SensorStdDev * n.SensorStdDev
}

// RunConfig selects the model variant and the simulation horizon.
type RunConfig struct {
	Model       string  `yaml:"model"`        // "two-phase" or "mesh"
	Integrator  string  `yaml:"integrator"`   // "euler" or "rk4"
	Estimator   string  `yaml:"estimator"`    // "ekf" or "none"
	TimeStep    float64 `yaml:"time_step"`    // seconds
	Duration    float64 `yaml:"duration"`     // seconds
	InitialTemp float64 `yaml:"initial_temp"` // °C, plant and estimator start here
	Seed        int64   `yaml:"seed"`
}

// Steps returns the number of ticks covering Duration.
func (r RunConfig) Steps() int64 {
	return int64(math.Round(r.Duration / r.TimeStep))
}

// TicksFor converts a duration in seconds into a whole number of ticks.
func (r RunConfig) TicksFor(seconds float64) int64 {
	return int64(math.Round(seconds / r.TimeStep))
}

// WorkloadConfig describes the activity signal supplied by the workload generator
// and, for the mesh model, the floorplan of dynamic power.
type WorkloadConfig struct {
	Profile        string    `yaml:"profile"`              // "constant", "burst" or "trace"
	Base           float64   `yaml:"base"`                 // activity outside the burst
	Peak           float64   `yaml:"peak"`                 // activity during the burst
	Jitter         float64   `yaml:"jitter"`               // std-dev of per-tick activity noise
	BurstStart     float64   `yaml:"burst_start"`          // seconds
	BurstEnd       float64   `yaml:"burst_end"`            // seconds
	Samples        []float64 `yaml:"samples,omitempty"`    // per-tick activity for "trace"
	TraceFile      string    `yaml:"trace_file,omitempty"` // YAML file with samples for "trace"
	HotspotFlux    float64   `yaml:"hotspot_flux"`         // W/cm² of hotspot zones at activity 1.0
	BackgroundFlux float64   `yaml:"background_flux"`      // W/cm² of the remaining zones
	Hotspots       []int     `yaml:"hotspots,omitempty"`   // zone indices (row-major)

	// ZoneScale multiplies the activity of individual zones; absent zones use 1.0.
	ZoneScale map[int]float64 `yaml:"zone_scale,omitempty"`
}
