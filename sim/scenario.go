package sim

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// MaxRecommendedZones is the zone count above which per-tick cost stops being
// negligible relative to the physical timestep.
const MaxRecommendedZones = 64

// Scenario is the complete, immutable configuration of one simulation run.
// Loadable from YAML; every component receives the sections it needs by value.
type Scenario struct {
	Grid     GridConfig     `yaml:"grid"`
	Material MaterialConfig `yaml:"material"`
	Cooling  CoolingConfig  `yaml:"cooling"`
	Power    PowerConfig    `yaml:"power"`
	Safety   SafetyConfig   `yaml:"safety"`
	Noise    NoiseConfig    `yaml:"noise"`
	Run      RunConfig      `yaml:"run"`
	Workload WorkloadConfig `yaml:"workload"`
}

// ValidModels is the set of recognized thermal model names.
var ValidModels = map[string]bool{ModelTwoPhase: true, ModelMesh: true}

// ValidIntegrators is the set of recognized integrator names.
var ValidIntegrators = map[string]bool{"euler": true, "rk4": true}

// ValidEstimators is the set of recognized estimator names.
var ValidEstimators = map[string]bool{"": true, "none": true, "ekf": true}

// Thermal model names.
const (
	ModelTwoPhase = "two-phase"
	ModelMesh     = "mesh"
)

// DefaultHotspots are the eight hotspot zones of the 8x8 reference floorplan:
// two 2x2 core clusters.
var DefaultHotspots = []int{18, 19, 26, 27, 44, 45, 52, 53}

// DefaultScenario returns the single-zone boiling-wall die: a 1 cm² die on
// two-phase cooling hit by a 4x activity burst from 10 ms to 40 ms.
func DefaultScenario() Scenario {
	return Scenario{
		Grid: GridConfig{Rows: 1, Cols: 1},
		Material: MaterialConfig{
			Density:      2330.0,
			SpecificHeat: 700.0,
			Conductivity: 149.0,
			Thickness:    150e-6,
			DieSide:      0.01,
		},
		Cooling: CoolingConfig{
			Ambient:               25.0,
			SinkResistance:        0.25,
			SinglePhaseResistance: 0.15,
			TwoPhaseResistance:    0.09,
			BoilingPoint:          85.0,
			VaporFactor:           0.1,
		},
		Power: PowerConfig{
			Voltage:          0.85,
			NominalVoltage:   0.85,
			DynamicBase:      180.0,
			LeakageCoeff:     0.12,
			LeakageTempCoeff: 0.015,
			ReferenceTemp:    25.0,
		},
		Safety: SafetyConfig{
			CHFLimit:         400.0,
			SafetyFraction:   0.70,
			CriticalTemp:     105.0,
			TargetTemp:       98.0,
			ReactiveTrigger:  95.0,
			MigrationLatency: 0.002,
			MinGating:        0.4,
			ResidualActivity: 0.1,
			StableRate:       50.0,
			MeltTemp:         1414.0,
			FloorTemp:        -273.0,
		},
		Noise: NoiseConfig{
			ProcessVariance:   0.001,
			InitialCovariance: 1.0,
		},
		Run: RunConfig{
			Model:       ModelTwoPhase,
			Integrator:  "euler",
			Estimator:   "none",
			TimeStep:    1e-4,
			Duration:    0.08,
			InitialTemp: 55.0,
			Seed:        42,
		},
		Workload: WorkloadConfig{
			Profile:    "burst",
			Base:       1.0,
			Peak:       4.0,
			BurstStart: 0.01,
			BurstEnd:   0.04,
		},
	}
}

// DefaultMeshScenario returns the 8x8 mesh with backside power delivery and
// eight hotspot zones at 300 W/cm², tracked by the Mesh-EKF through sensors
// with 0.5 °C standard deviation.
func DefaultMeshScenario() Scenario {
	s := DefaultScenario()
	s.Grid = GridConfig{Rows: 8, Cols: 8}
	s.Cooling.BSPDN = true
	s.Noise = NoiseConfig{
		SensorStdDev:      0.5,
		ProcessVariance:   0.001,
		InitialCovariance: 1.0,
	}
	s.Run = RunConfig{
		Model:       ModelMesh,
		Integrator:  "rk4",
		Estimator:   "ekf",
		TimeStep:    1e-3,
		Duration:    0.2,
		InitialTemp: 45.0,
		Seed:        42,
	}
	s.Workload = WorkloadConfig{
		Profile:     "constant",
		Base:        1.0,
		HotspotFlux: 300.0,
		Hotspots:    append([]int(nil), DefaultHotspots...),
	}
	return s
}

// LoadScenario reads a YAML scenario file on top of base. Fields absent from
// the file keep the values of base. Unknown fields are rejected.
func LoadScenario(path string, base Scenario) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	sc := base
	sc.Workload.Hotspots = append([]int(nil), base.Workload.Hotspots...)
	sc.Workload.ZoneScale = nil
	if base.Workload.ZoneScale != nil {
		sc.Workload.ZoneScale = make(map[int]float64, len(base.Workload.ZoneScale))
		for k, v := range base.Workload.ZoneScale {
			sc.Workload.ZoneScale[k] = v
		}
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks model names and parameter ranges.
func (s *Scenario) Validate() error {
	if !ValidModels[s.Run.Model] {
		return fmt.Errorf("unknown model %q", s.Run.Model)
	}
	if !ValidIntegrators[s.Run.Integrator] {
		return fmt.Errorf("unknown integrator %q", s.Run.Integrator)
	}
	if !ValidEstimators[s.Run.Estimator] {
		return fmt.Errorf("unknown estimator %q", s.Run.Estimator)
	}
	if s.Grid.Rows < 1 || s.Grid.Cols < 1 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", s.Grid.Rows, s.Grid.Cols)
	}
	if s.Run.Model == ModelTwoPhase && s.Grid.Zones() != 1 {
		return fmt.Errorf("two-phase model is single-zone, got %d zones", s.Grid.Zones())
	}
	if s.Grid.Zones() > MaxRecommendedZones {
		logrus.Warnf("grid has %d zones; per-tick cost grows cubically above %d", s.Grid.Zones(), MaxRecommendedZones)
	}
	if s.Run.TimeStep <= 0 {
		return fmt.Errorf("time_step must be positive, got %g", s.Run.TimeStep)
	}
	if s.Run.Duration < s.Run.TimeStep {
		return fmt.Errorf("duration %g shorter than one time step %g", s.Run.Duration, s.Run.TimeStep)
	}
	m := s.Material
	if m.Density <= 0 || m.SpecificHeat <= 0 || m.Conductivity <= 0 || m.Thickness <= 0 || m.DieSide <= 0 {
		return fmt.Errorf("material constants must be positive: %+v", m)
	}
	c := s.Cooling
	if c.SinkResistance <= 0 || c.SinglePhaseResistance <= 0 || c.TwoPhaseResistance <= 0 {
		return fmt.Errorf("thermal resistances must be positive: %+v", c)
	}
	if c.VaporFactor <= 0 || c.VaporFactor > 1 {
		return fmt.Errorf("vapor_factor must be in (0,1], got %g", c.VaporFactor)
	}
	if s.Power.Voltage < 0 {
		return fmt.Errorf("voltage must be non-negative, got %g: %w", s.Power.Voltage, ErrInvalidInput)
	}
	if s.Power.NominalVoltage <= 0 {
		return fmt.Errorf("nominal_voltage must be positive, got %g", s.Power.NominalVoltage)
	}
	sf := s.Safety
	if sf.CHFLimit <= 0 {
		return fmt.Errorf("chf_limit must be positive, got %g", sf.CHFLimit)
	}
	if sf.SafetyFraction <= 0 || sf.SafetyFraction > 1 {
		return fmt.Errorf("safety_fraction must be in (0,1], got %g", sf.SafetyFraction)
	}
	if sf.MinGating <= 0 || sf.MinGating > 1 {
		return fmt.Errorf("min_gating must be in (0,1], got %g", sf.MinGating)
	}
	if sf.TargetTemp >= sf.CriticalTemp {
		return fmt.Errorf("target_temp %g must be below critical_temp %g", sf.TargetTemp, sf.CriticalTemp)
	}
	if sf.MigrationLatency < s.Run.TimeStep {
		return fmt.Errorf("migration_latency %g shorter than one time step %g", sf.MigrationLatency, s.Run.TimeStep)
	}
	if sf.FloorTemp >= sf.MeltTemp {
		return fmt.Errorf("floor_temp %g must be below melt_temp %g", sf.FloorTemp, sf.MeltTemp)
	}
	if s.Run.InitialTemp < sf.FloorTemp || s.Run.InitialTemp > sf.MeltTemp {
		return fmt.Errorf("initial_temp %g outside [%g, %g]", s.Run.InitialTemp, sf.FloorTemp, sf.MeltTemp)
	}
	if sf.ResidualActivity < 0 {
		return fmt.Errorf("residual_activity must be non-negative, got %g: %w", sf.ResidualActivity, ErrInvalidInput)
	}
	n := s.Noise
	if n.SensorStdDev < 0 || n.ProcessVariance < 0 || n.MeasurementVariance < 0 || n.InitialCovariance < 0 {
		return fmt.Errorf("noise parameters must be non-negative: %+v", n)
	}
	for _, idx := range s.Workload.Hotspots {
		if idx < 0 || idx >= s.Grid.Zones() {
			return fmt.Errorf("hotspot zone %d outside grid of %d zones", idx, s.Grid.Zones())
		}
	}
	for idx, scale := range s.Workload.ZoneScale {
		if idx < 0 || idx >= s.Grid.Zones() {
			return fmt.Errorf("zone_scale zone %d outside grid of %d zones", idx, s.Grid.Zones())
		}
		if scale < 0 {
			return fmt.Errorf("zone_scale for zone %d is %g: %w", idx, scale, ErrInvalidInput)
		}
	}
	return nil
}
