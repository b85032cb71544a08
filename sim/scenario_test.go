package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultScenarios_Validate(t *testing.T) {
	for name, sc := range map[string]Scenario{
		"two-phase": DefaultScenario(),
		"mesh":      DefaultMeshScenario(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, sc.Validate())
		})
	}
}

func TestDefaultMeshScenario_HotspotsIndependentOfPackageVar(t *testing.T) {
	sc := DefaultMeshScenario()
	sc.Workload.Hotspots[0] = 0
	assert.Equal(t, 18, DefaultHotspots[0])
}

func TestLoadScenario_OverridesOnlyGivenFields(t *testing.T) {
	// GIVEN a file that changes the grid, the CHF limit and the seed
	path := writeTempYAML(t, `
grid:
  rows: 4
  cols: 4
safety:
  chf_limit: 500
run:
  seed: 7
workload:
  hotspots: [5, 6]
  zone_scale:
    5: 1.5
`)

	// WHEN loaded on top of the mesh defaults
	sc, err := LoadScenario(path, DefaultMeshScenario())
	require.NoError(t, err)

	// THEN the given fields change and the rest keep their defaults
	assert.Equal(t, GridConfig{Rows: 4, Cols: 4}, sc.Grid)
	assert.Equal(t, 500.0, sc.Safety.CHFLimit)
	assert.Equal(t, 0.7, sc.Safety.SafetyFraction)
	assert.Equal(t, int64(7), sc.Run.Seed)
	assert.Equal(t, ModelMesh, sc.Run.Model)
	assert.Equal(t, []int{5, 6}, sc.Workload.Hotspots)
	assert.Equal(t, map[int]float64{5: 1.5}, sc.Workload.ZoneScale)
	assert.NoError(t, sc.Validate())
}

func TestLoadScenario_DoesNotMutateBase(t *testing.T) {
	base := DefaultMeshScenario()
	path := writeTempYAML(t, "workload:\n  hotspots: [1]\n")

	_, err := LoadScenario(path, base)
	require.NoError(t, err)

	assert.Equal(t, DefaultHotspots, base.Workload.Hotspots)
}

func TestLoadScenario_UnknownField_Rejected(t *testing.T) {
	path := writeTempYAML(t, "safety:\n  chf_limt: 500\n")

	_, err := LoadScenario(path, DefaultScenario())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chf_limt")
}

func TestLoadScenario_NonexistentFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml", DefaultScenario())
	assert.Error(t, err)
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeTempYAML(t, "grid: [unclosed")
	_, err := LoadScenario(path, DefaultScenario())
	assert.Error(t, err)
}

func TestScenario_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"unknown model", func(s *Scenario) { s.Run.Model = "lumped" }},
		{"unknown integrator", func(s *Scenario) { s.Run.Integrator = "midpoint" }},
		{"unknown estimator", func(s *Scenario) { s.Run.Estimator = "ukf" }},
		{"empty grid", func(s *Scenario) { s.Grid.Rows = 0 }},
		{"multi-zone two-phase", func(s *Scenario) { s.Grid = GridConfig{Rows: 2, Cols: 2} }},
		{"zero time step", func(s *Scenario) { s.Run.TimeStep = 0 }},
		{"duration below one step", func(s *Scenario) { s.Run.Duration = 1e-5 }},
		{"zero density", func(s *Scenario) { s.Material.Density = 0 }},
		{"zero resistance", func(s *Scenario) { s.Cooling.TwoPhaseResistance = 0 }},
		{"vapor factor above one", func(s *Scenario) { s.Cooling.VaporFactor = 1.5 }},
		{"negative voltage", func(s *Scenario) { s.Power.Voltage = -0.1 }},
		{"zero chf", func(s *Scenario) { s.Safety.CHFLimit = 0 }},
		{"safety fraction above one", func(s *Scenario) { s.Safety.SafetyFraction = 1.2 }},
		{"zero min gating", func(s *Scenario) { s.Safety.MinGating = 0 }},
		{"target above critical", func(s *Scenario) { s.Safety.TargetTemp = 110 }},
		{"latency below one step", func(s *Scenario) { s.Safety.MigrationLatency = 1e-5 }},
		{"floor above melt", func(s *Scenario) { s.Safety.FloorTemp = 2000 }},
		{"initial temp above melt", func(s *Scenario) { s.Run.InitialTemp = 1500 }},
		{"negative residual", func(s *Scenario) { s.Safety.ResidualActivity = -0.1 }},
		{"negative noise", func(s *Scenario) { s.Noise.SensorStdDev = -1 }},
		{"hotspot off grid", func(s *Scenario) { s.Workload.Hotspots = []int{1} }},
		{"zone scale off grid", func(s *Scenario) { s.Workload.ZoneScale = map[int]float64{3: 2} }},
		{"negative zone scale", func(s *Scenario) { s.Workload.ZoneScale = map[int]float64{0: -1} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc := DefaultScenario()
			tc.mutate(&sc)
			assert.Error(t, sc.Validate())
		})
	}
}

func TestScenario_Validate_NegativeInputsWrapInvalidInput(t *testing.T) {
	sc := DefaultScenario()
	sc.Power.Voltage = -1
	assert.ErrorIs(t, sc.Validate(), ErrInvalidInput)
}

func TestRunConfig_StepsAndTicks(t *testing.T) {
	r := DefaultScenario().Run
	assert.Equal(t, int64(800), r.Steps())
	assert.Equal(t, int64(100), r.TicksFor(0.01))
	assert.Equal(t, int64(400), r.TicksFor(0.04))
}

func TestSafetyConfig_SafetyThreshold(t *testing.T) {
	assert.InDelta(t, 280.0, DefaultScenario().Safety.SafetyThreshold(), 1e-9)
}

func TestNoiseConfig_MeasurementNoise(t *testing.T) {
	assert.Equal(t, 0.25, NoiseConfig{SensorStdDev: 0.5}.MeasurementNoise())
	assert.Equal(t, 0.1, NoiseConfig{SensorStdDev: 0.5, MeasurementVariance: 0.1}.MeasurementNoise())
}
