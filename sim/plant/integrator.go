package plant

import (
	"fmt"

	"github.com/aipp-t/thermal-sim/sim"
)

// Integrator advances a temperature vector by one fixed step in place.
// The power map is held constant across the step; the model re-evaluates the
// cooling regime at every stage.
type Integrator interface {
	Step(model sim.ThermalModel, temps []float64, powers sim.PowerMap, dt float64)
}

// Euler is the explicit forward Euler method.
type Euler struct {
	deriv []float64
}

// Step advances temps in place by one explicit Euler step.
func (e *Euler) Step(model sim.ThermalModel, temps []float64, powers sim.PowerMap, dt float64) {
	if len(e.deriv) != len(temps) {
		e.deriv = make([]float64, len(temps))
	}
	model.Derivative(e.deriv, temps, powers)
	for i := range temps {
		temps[i] += e.deriv[i] * dt
	}
}

// RK4 is the classical fourth-order Runge-Kutta method.
type RK4 struct {
	k1, k2, k3, k4, tmp []float64
}

// Step advances temps in place by one classic fourth-order Runge-Kutta step,
// re-evaluating the CHF regime at every stage.
func (r *RK4) Step(model sim.ThermalModel, temps []float64, powers sim.PowerMap, dt float64) {
	n := len(temps)
	if len(r.k1) != n {
		r.k1, r.k2, r.k3, r.k4, r.tmp = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	}
	model.Derivative(r.k1, temps, powers)
	for i := range temps {
		r.tmp[i] = temps[i] + 0.5*dt*r.k1[i]
	}
	model.Derivative(r.k2, r.tmp, powers)
	for i := range temps {
		r.tmp[i] = temps[i] + 0.5*dt*r.k2[i]
	}
	model.Derivative(r.k3, r.tmp, powers)
	for i := range temps {
		r.tmp[i] = temps[i] + dt*r.k3[i]
	}
	model.Derivative(r.k4, r.tmp, powers)
	for i := range temps {
		temps[i] += dt / 6.0 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
}

// NewIntegrator creates an integrator by name.
// Valid names are defined in sim.ValidIntegrators.
// Panics on unrecognized names.
func NewIntegrator(name string) Integrator {
	switch name {
	case "euler":
		return &Euler{}
	case "rk4":
		return &RK4{}
	default:
		panic(fmt.Sprintf("unknown integrator %q", name))
	}
}

// NewModel creates the thermal model selected by sc.Run.Model.
// Panics on unrecognized names; call sc.Validate() first.
func NewModel(sc sim.Scenario) sim.ThermalModel {
	switch sc.Run.Model {
	case sim.ModelMesh:
		return NewMeshModel(sc.Grid, sc.Material, sc.Cooling, sc.Safety.CHFLimit)
	case sim.ModelTwoPhase:
		return NewTwoPhaseModel(sc.Material, sc.Cooling, sc.Safety.CHFLimit)
	default:
		panic(fmt.Sprintf("unknown model %q", sc.Run.Model))
	}
}
