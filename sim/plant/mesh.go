// Package plant provides the thermal plant models used as simulation ground
// truth: a 4-connected zone mesh and a single-zone two-phase cooling die.
// Both implement sim.ThermalModel so the estimator and controller can share
// the exact dynamics the plant integrates.
package plant

import (
	"gonum.org/v1/gonum/mat"

	"github.com/aipp-t/thermal-sim/sim"
)

// Backside power delivery adds copper mass and a parallel vertical path.
const (
	bspdnResistanceFactor = 0.85
	bspdnMassFactor       = 1.2
)

// MeshModel is a rows x cols grid of zones exchanging heat laterally with
// their 4-connected neighbours and vertically with a heat sink.
type MeshModel struct {
	zones       []sim.Zone
	mass        float64 // J/K per zone
	gLateral    float64 // W/K between two adjacent zones: 1/(2·R_lateral)
	gVertical   float64 // W/K from one zone to the sink
	ambient     float64
	zoneArea    float64 // cm²
	chfLimit    float64 // W/cm²
	vaporFactor float64
}

// NewMeshModel derives zone mass and resistances from the material and cooling
// constants. The sink resistance is split across zones in parallel.
func NewMeshModel(grid sim.GridConfig, material sim.MaterialConfig, cooling sim.CoolingConfig, chfLimit float64) *MeshModel {
	n := grid.Zones()
	side := material.DieSide / float64(grid.Cols)
	area := side * side
	mass := material.Density * material.SpecificHeat * area * material.Thickness
	rLateral := side / (material.Conductivity * side * material.Thickness)
	rVertical := cooling.SinkResistance * float64(n)
	if cooling.BSPDN {
		rVertical *= bspdnResistanceFactor
		mass *= bspdnMassFactor
	}

	m := &MeshModel{
		zones:       make([]sim.Zone, n),
		mass:        mass,
		gLateral:    1.0 / (2 * rLateral),
		gVertical:   1.0 / rVertical,
		ambient:     cooling.Ambient,
		zoneArea:    area * 1e4,
		chfLimit:    chfLimit,
		vaporFactor: cooling.VaporFactor,
	}
	for idx := range m.zones {
		r, c := idx/grid.Cols, idx%grid.Cols
		m.zones[idx] = sim.Zone{
			Index:              idx,
			Row:                r,
			Col:                c,
			Mass:               mass,
			LateralResistance:  rLateral,
			VerticalResistance: rVertical,
			Neighbors:          neighbors(r, c, grid),
		}
	}
	return m
}

// neighbors returns the 4-connected neighbours of (r, c) in N, S, W, E order.
func neighbors(r, c int, grid sim.GridConfig) []int {
	idx := r*grid.Cols + c
	out := make([]int, 0, 4)
	if r > 0 {
		out = append(out, idx-grid.Cols)
	}
	if r < grid.Rows-1 {
		out = append(out, idx+grid.Cols)
	}
	if c > 0 {
		out = append(out, idx-1)
	}
	if c < grid.Cols-1 {
		out = append(out, idx+1)
	}
	return out
}

// NumZones returns rows x cols.
func (m *MeshModel) NumZones() int { return len(m.zones) }

// ZoneArea returns the area of one zone in cm².
func (m *MeshModel) ZoneArea() float64 { return m.zoneArea }

// Layout returns the zones with their identities and neighbour lists.
func (m *MeshModel) Layout() []sim.Zone { return m.zones }

// sinkConductance returns the vertical conductance of a zone at the given power,
// collapsed by the vapor factor when the zone flux exceeds CHF.
func (m *MeshModel) sinkConductance(power float64) float64 {
	if sim.Flux(power, m.zoneArea) > m.chfLimit {
		return m.gVertical * m.vaporFactor
	}
	return m.gVertical
}

// Derivative implements dT_i/dt = (P_i − Q_sink,i − Σ Q_lateral,i,n) / C_zone.
func (m *MeshModel) Derivative(dst, temps []float64, powers sim.PowerMap) {
	for i, z := range m.zones {
		qSink := (temps[i] - m.ambient) * m.sinkConductance(powers[i])
		qLateral := 0.0
		for _, n := range z.Neighbors {
			qLateral += (temps[i] - temps[n]) * m.gLateral
		}
		dst[i] = (powers[i] - qSink - qLateral) / m.mass
	}
}

// Jacobian is the conduction matrix −(G_sink + G_lateral·L)/C in the current regime.
func (m *MeshModel) Jacobian(dst *mat.Dense, _ []float64, powers sim.PowerMap) {
	dst.Zero()
	for i, z := range m.zones {
		dst.Set(i, i, -(m.sinkConductance(powers[i])+float64(len(z.Neighbors))*m.gLateral)/m.mass)
		for _, n := range z.Neighbors {
			dst.Set(i, n, m.gLateral/m.mass)
		}
	}
}
