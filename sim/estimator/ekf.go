// Package estimator fuses noisy zone-temperature samples into a state estimate.
//
// MeshEKF predicts with the same non-linear ThermalModel the plant integrates
// and corrects with a linear Kalman update, the sensor model being the
// identity (every zone is measured directly).
package estimator

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/aipp-t/thermal-sim/sim"
)

// Diagonal jitter tried, growing x100, when S is not numerically positive definite.
const (
	minJitter = 1e-12
	maxJitter = 1e-6
)

// MeshEKF is the spatially-aware Extended Kalman Filter over N zones.
// Not thread-safe; owned by a single control loop.
type MeshEKF struct {
	model sim.ThermalModel
	dt    float64
	n     int
	q     float64 // diagonal of the process noise Q
	r     float64 // diagonal of the measurement noise R

	x []float64  // x̂
	p *mat.Dense // P, symmetric positive semi-definite

	deriv []float64
	jac   *mat.Dense
	f     *mat.Dense

	lastNIS         float64
	regularizations int
}

// NewMeshEKF initialises x̂ to initialTemp everywhere and P to p0·I.
func NewMeshEKF(model sim.ThermalModel, dt, initialTemp float64, noise sim.NoiseConfig) *MeshEKF {
	n := model.NumZones()
	x := make([]float64, n)
	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		x[i] = initialTemp
		p.Set(i, i, noise.InitialCovariance)
	}
	return &MeshEKF{
		model: model,
		dt:    dt,
		n:     n,
		q:     noise.ProcessVariance,
		r:     noise.MeasurementNoise(),
		x:     x,
		p:     p,
		deriv: make([]float64, n),
		jac:   mat.NewDense(n, n, nil),
		f:     mat.NewDense(n, n, nil),
	}
}

// Update runs predict then correct. powers are the watts injected during the
// tick; measured holds one sample per zone.
func (e *MeshEKF) Update(powers sim.PowerMap, measured []float64) []float64 {
	xPred, pPred := e.predict(powers)
	e.correct(xPred, pPred, measured)
	return e.Estimate()
}

// predict evaluates the plant's net heat flow at the current estimate:
// x_pred = x̂ + f(x̂, u)·dt and P_pred = F·P·Fᵀ + Q with F = I + dt·J.
func (e *MeshEKF) predict(powers sim.PowerMap) ([]float64, *mat.Dense) {
	e.model.Derivative(e.deriv, e.x, powers)
	xPred := make([]float64, e.n)
	for i := range e.x {
		xPred[i] = e.x[i] + e.deriv[i]*e.dt
	}

	e.model.Jacobian(e.jac, e.x, powers)
	e.f.Scale(e.dt, e.jac)
	for i := 0; i < e.n; i++ {
		e.f.Set(i, i, e.f.At(i, i)+1)
	}
	var fp mat.Dense
	fp.Mul(e.f, e.p)
	pPred := mat.NewDense(e.n, e.n, nil)
	pPred.Mul(&fp, e.f.T())
	for i := 0; i < e.n; i++ {
		pPred.Set(i, i, pPred.At(i, i)+e.q)
	}
	return xPred, pPred
}

// correct applies r = y − x_pred, S = P + R, K = P·S⁻¹, x̂ = x_pred + K·r,
// P = (I − K)·P. The gain comes from a Cholesky solve, never an explicit inverse.
//
// An exact sensor (R = 0) gives K = I: the estimate adopts the measurement and
// P collapses to zero.
func (e *MeshEKF) correct(xPred []float64, pPred *mat.Dense, measured []float64) {
	if e.r == 0 {
		copy(xPred, measured)
		e.x = xPred
		e.p = mat.NewDense(e.n, e.n, nil)
		e.lastNIS = 0
		return
	}
	s := mat.NewSymDense(e.n, nil)
	for i := 0; i < e.n; i++ {
		for j := i; j < e.n; j++ {
			v := 0.5 * (pPred.At(i, j) + pPred.At(j, i))
			if i == j {
				v += e.r
			}
			s.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if !e.factorize(&chol, s) {
		logrus.Warnf("estimator: innovation covariance not positive definite, keeping prediction")
		e.x = xPred
		e.p = symmetrize(pPred)
		return
	}

	residual := mat.NewVecDense(e.n, nil)
	for i := range xPred {
		residual.SetVec(i, measured[i]-xPred[i])
		if sd := math.Sqrt(s.At(i, i)); math.Abs(residual.AtVec(i)) > 3*sd {
			logrus.Debugf("estimator: zone %d residual %.3f°C outside 3-sigma (%.3f)", i, residual.AtVec(i), 3*sd)
		}
	}

	// Kᵀ = S⁻¹·Pᵀ since S is symmetric.
	var kt mat.Dense
	if err := chol.SolveTo(&kt, pPred.T()); err != nil {
		logrus.Warnf("estimator: gain solve failed (%v), keeping prediction", err)
		e.x = xPred
		e.p = symmetrize(pPred)
		return
	}

	var kr mat.VecDense
	kr.MulVec(kt.T(), residual)
	for i := range xPred {
		xPred[i] += kr.AtVec(i)
	}
	e.x = xPred

	var kp, next mat.Dense
	kp.Mul(kt.T(), pPred)
	next.Sub(pPred, &kp)
	e.p = symmetrize(&next)

	var sr mat.VecDense
	if err := chol.SolveVecTo(&sr, residual); err == nil {
		e.lastNIS = mat.Dot(residual, &sr)
	}
}

// factorize tries S, then S + jitter·I with growing jitter.
func (e *MeshEKF) factorize(chol *mat.Cholesky, s *mat.SymDense) bool {
	if chol.Factorize(s) {
		return true
	}
	for jitter := minJitter; jitter <= maxJitter; jitter *= 100 {
		js := mat.NewSymDense(e.n, nil)
		js.CopySym(s)
		for i := 0; i < e.n; i++ {
			js.SetSym(i, i, s.At(i, i)+jitter)
		}
		if chol.Factorize(js) {
			if e.regularizations == 0 {
				logrus.Warnf("estimator: regularized innovation covariance with jitter %g", jitter)
			}
			e.regularizations++
			return true
		}
	}
	return false
}

func symmetrize(m *mat.Dense) *mat.Dense {
	n, _ := m.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (m.At(i, j) + m.At(j, i))
			out.Set(i, j, v)
			out.Set(j, i, v)
		}
	}
	return out
}

// Estimate returns a copy of x̂.
func (e *MeshEKF) Estimate() []float64 {
	out := make([]float64, e.n)
	copy(out, e.x)
	return out
}

// Covariance returns a copy of P.
func (e *MeshEKF) Covariance() *mat.Dense {
	return mat.DenseCopyOf(e.p)
}

// NIS returns the normalised innovation squared of the last correction.
// Its expectation is N for a consistent filter.
func (e *MeshEKF) NIS() float64 { return e.lastNIS }

// Regularizations counts corrections that needed diagonal jitter.
func (e *MeshEKF) Regularizations() int { return e.regularizations }

// Passthrough forwards measurements unchanged, for runs that control on raw
// sensor samples or on ground truth when the sensor is noiseless.
type Passthrough struct {
	x []float64
}

// NewPassthrough starts with every zone at initialTemp.
func NewPassthrough(n int, initialTemp float64) *Passthrough {
	x := make([]float64, n)
	for i := range x {
		x[i] = initialTemp
	}
	return &Passthrough{x: x}
}

func (p *Passthrough) Update(_ sim.PowerMap, measured []float64) []float64 {
	copy(p.x, measured)
	return p.Estimate()
}

func (p *Passthrough) Estimate() []float64 {
	out := make([]float64, len(p.x))
	copy(out, p.x)
	return out
}

// New creates the estimator selected by sc.Run.Estimator.
// "" and "none" select Passthrough.
func New(sc sim.Scenario, model sim.ThermalModel) sim.Estimator {
	if sc.Run.Estimator == "ekf" {
		return NewMeshEKF(model, sc.Run.TimeStep, sc.Run.InitialTemp, sc.Noise)
	}
	return NewPassthrough(model.NumZones(), sc.Run.InitialTemp)
}
