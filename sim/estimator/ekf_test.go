package estimator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aipp-t/thermal-sim/sim"
	"github.com/aipp-t/thermal-sim/sim/plant"
	"github.com/aipp-t/thermal-sim/sim/workload"
)

// meshFixture returns a mesh scenario with its model and the power map the
// floorplan injects at activity 1.0 and the given temperatures.
func meshFixture(t *testing.T, rows, cols int) (sim.Scenario, sim.ThermalModel, *sim.DiePower) {
	t.Helper()
	sc := sim.DefaultMeshScenario()
	sc.Grid = sim.GridConfig{Rows: rows, Cols: cols}
	if rows*cols < 64 {
		sc.Workload.Hotspots = []int{0, rows*cols - 1}
	}
	require.NoError(t, sc.Validate())
	model := plant.NewModel(sc)
	return sc, model, workload.NewDiePower(sc, model)
}

func ones(n int) []float64 {
	a := make([]float64, n)
	for i := range a {
		a[i] = 1
	}
	return a
}

func TestMeshEKF_NoiselessEulerPlant_EstimateEqualsTruth(t *testing.T) {
	// GIVEN an Euler plant, zero process and measurement noise, and noiseless sensors
	sc, model, power := meshFixture(t, 4, 4)
	sc.Noise = sim.NoiseConfig{InitialCovariance: 1.0}
	p := plant.New(model, &plant.Euler{}, plant.BoundsFrom(sc.Safety), sc.Run.TimeStep, sc.Run.InitialTemp)
	ekf := NewMeshEKF(model, sc.Run.TimeStep, sc.Run.InitialTemp, sc.Noise)
	powers := make(sim.PowerMap, 16)
	activity := ones(16)

	for k := 0; k < 100; k++ {
		// WHEN the plant steps and the filter sees the exact temperatures
		require.NoError(t, power.Map(powers, p.Temperatures(), activity, nil))
		require.NoError(t, p.Step(powers))
		est := ekf.Update(powers, p.Temperatures())

		// THEN the estimate reproduces the truth exactly
		require.Equal(t, p.Temperatures(), est, "tick %d", k)
	}
}

func TestMeshEKF_NoisySensors_MAEBelowOneDegree(t *testing.T) {
	// GIVEN the 64-zone mesh integrated with RK4 and 0.5 °C sensor noise
	sc, model, power := meshFixture(t, 8, 8)
	p := plant.New(model, &plant.RK4{}, plant.BoundsFrom(sc.Safety), sc.Run.TimeStep, sc.Run.InitialTemp)
	ekf := NewMeshEKF(model, sc.Run.TimeStep, sc.Run.InitialTemp, sc.Noise)
	rng := rand.New(rand.NewSource(42))
	powers := make(sim.PowerMap, 64)
	measured := make([]float64, 64)
	activity := ones(64)

	// WHEN run for 200 ticks
	sumErr, samples := 0.0, 0
	for k := 0; k < 200; k++ {
		require.NoError(t, power.Map(powers, p.Temperatures(), activity, nil))
		require.NoError(t, p.Step(powers))
		for i, v := range p.Temperatures() {
			measured[i] = v + rng.NormFloat64()*sc.Noise.SensorStdDev
		}
		est := ekf.Update(powers, measured)
		if k >= 150 {
			for i, v := range p.Temperatures() {
				sumErr += math.Abs(est[i] - v)
				samples++
			}
		}
	}

	// THEN the mean absolute error over the last 50 ticks is below 1 °C
	mae := sumErr / float64(samples)
	assert.Less(t, mae, 1.0)
	assert.Less(t, mae, sc.Noise.SensorStdDev, "filtering must beat the raw sensor")
}

func TestMeshEKF_Covariance_SymmetricAndBounded(t *testing.T) {
	// GIVEN a filter updated with noisy samples
	sc, model, power := meshFixture(t, 4, 4)
	ekf := NewMeshEKF(model, sc.Run.TimeStep, sc.Run.InitialTemp, sc.Noise)
	rng := rand.New(rand.NewSource(3))
	powers := make(sim.PowerMap, 16)
	temps := make([]float64, 16)
	measured := make([]float64, 16)
	for i := range temps {
		temps[i] = sc.Run.InitialTemp
	}
	require.NoError(t, power.Map(powers, temps, ones(16), nil))

	for k := 0; k < 50; k++ {
		for i := range measured {
			measured[i] = temps[i] + rng.NormFloat64()*sc.Noise.SensorStdDev
		}
		ekf.Update(powers, measured)
	}

	// THEN P stays symmetric with positive diagonal below its initial value
	cov := ekf.Covariance()
	r, c := cov.Dims()
	require.Equal(t, 16, r)
	require.Equal(t, 16, c)
	for i := 0; i < 16; i++ {
		assert.Greater(t, cov.At(i, i), 0.0)
		assert.Less(t, cov.At(i, i), sc.Noise.InitialCovariance)
		for j := 0; j < 16; j++ {
			assert.Equal(t, cov.At(i, j), cov.At(j, i))
		}
	}
	assert.False(t, math.IsNaN(ekf.NIS()))
	assert.GreaterOrEqual(t, ekf.NIS(), 0.0)
	assert.Equal(t, 0, ekf.Regularizations())
}

func TestMeshEKF_IndefiniteInnovation_RegularizedNotFailed(t *testing.T) {
	// GIVEN a slightly negative P0 that a tiny R cannot lift, so S is indefinite
	sc, model, power := meshFixture(t, 2, 2)
	ekf := NewMeshEKF(model, sc.Run.TimeStep, sc.Run.InitialTemp,
		sim.NoiseConfig{InitialCovariance: -1e-9, MeasurementVariance: 1e-10})
	powers := make(sim.PowerMap, 4)
	require.NoError(t, power.Map(powers, ekf.Estimate(), ones(4), nil))

	// WHEN updated
	est := ekf.Update(powers, []float64{50, 50, 50, 50})

	// THEN jitter rescues the factorisation and the estimate stays finite
	assert.Equal(t, 1, ekf.Regularizations())
	for _, v := range est {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestMeshEKF_ExactSensor_AdoptsMeasurement(t *testing.T) {
	// GIVEN a filter with P0 = Q = R = 0
	sc, model, power := meshFixture(t, 2, 2)
	ekf := NewMeshEKF(model, sc.Run.TimeStep, sc.Run.InitialTemp, sim.NoiseConfig{})
	powers := make(sim.PowerMap, 4)
	require.NoError(t, power.Map(powers, ekf.Estimate(), ones(4), nil))

	// WHEN updated with a measurement far from the prediction
	est := ekf.Update(powers, []float64{50, 51, 52, 53})

	// THEN the exact sensor wins without any regularisation
	assert.Equal(t, []float64{50, 51, 52, 53}, est)
	assert.Equal(t, 0, ekf.Regularizations())
	cov := ekf.Covariance()
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, cov.At(i, i))
	}
}

func TestMeshEKF_Estimate_ReturnsCopy(t *testing.T) {
	_, model, _ := meshFixture(t, 2, 2)
	ekf := NewMeshEKF(model, 1e-3, 40, sim.NoiseConfig{InitialCovariance: 1})

	est := ekf.Estimate()
	est[0] = 999

	assert.Equal(t, 40.0, ekf.Estimate()[0])
}

func TestPassthrough_ForwardsMeasurements(t *testing.T) {
	p := NewPassthrough(3, 30)
	assert.Equal(t, []float64{30, 30, 30}, p.Estimate())

	got := p.Update(nil, []float64{31, 32, 33})

	assert.Equal(t, []float64{31, 32, 33}, got)
	assert.Equal(t, []float64{31, 32, 33}, p.Estimate())
}

func TestNew_SelectsByName(t *testing.T) {
	sc, model, _ := meshFixture(t, 2, 2)

	assert.IsType(t, &MeshEKF{}, New(sc, model))
	sc.Run.Estimator = "none"
	assert.IsType(t, &Passthrough{}, New(sc, model))
	sc.Run.Estimator = ""
	assert.IsType(t, &Passthrough{}, New(sc, model))
}
