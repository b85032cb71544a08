package plant

import (
	"gonum.org/v1/gonum/mat"

	"github.com/aipp-t/thermal-sim/sim"
)

// TwoPhaseModel is a single-zone die on two-phase cooling. Thermal resistance
// drops once the junction reaches the boiling point (nucleate boiling) and
// heat removal collapses when die flux exceeds CHF (vapor lock).
type TwoPhaseModel struct {
	mass         float64 // J/K
	area         float64 // cm²
	ambient      float64
	boilingPoint float64
	rSinglePhase float64
	rTwoPhase    float64
	chfLimit     float64
	vaporFactor  float64
}

// NewTwoPhaseModel builds the single-zone model for the whole die.
func NewTwoPhaseModel(material sim.MaterialConfig, cooling sim.CoolingConfig, chfLimit float64) *TwoPhaseModel {
	areaM2 := material.DieSide * material.DieSide
	return &TwoPhaseModel{
		mass:         material.Density * material.SpecificHeat * areaM2 * material.Thickness,
		area:         material.DieArea(),
		ambient:      cooling.Ambient,
		boilingPoint: cooling.BoilingPoint,
		rSinglePhase: cooling.SinglePhaseResistance,
		rTwoPhase:    cooling.TwoPhaseResistance,
		chfLimit:     chfLimit,
		vaporFactor:  cooling.VaporFactor,
	}
}

// NumZones is always 1.
func (m *TwoPhaseModel) NumZones() int { return 1 }

// ZoneArea returns the die area in cm².
func (m *TwoPhaseModel) ZoneArea() float64 { return m.area }

// Resistance returns the junction-to-coolant resistance at temperature t.
func (m *TwoPhaseModel) Resistance(t float64) float64 {
	if t < m.boilingPoint {
		return m.rSinglePhase
	}
	return m.rTwoPhase
}

// conductance is the effective heat-removal conductance at (t, power).
func (m *TwoPhaseModel) conductance(t, power float64) float64 {
	g := 1.0 / m.Resistance(t)
	if sim.Flux(power, m.area) > m.chfLimit {
		g *= m.vaporFactor
	}
	return g
}

// Derivative writes dT/dt of the single zone into dst.
func (m *TwoPhaseModel) Derivative(dst, temps []float64, powers sim.PowerMap) {
	qOut := (temps[0] - m.ambient) * m.conductance(temps[0], powers[0])
	dst[0] = (powers[0] - qOut) / m.mass
}

// Jacobian ignores the discontinuity at the boiling point.
func (m *TwoPhaseModel) Jacobian(dst *mat.Dense, temps []float64, powers sim.PowerMap) {
	dst.Set(0, 0, -m.conductance(temps[0], powers[0])/m.mass)
}
