package sim

import "gonum.org/v1/gonum/mat"

// Zone is one cell of the spatial grid.
type Zone struct {
	Index              int
	Row, Col           int
	Mass               float64 // J/K
	LateralResistance  float64 // K/W to each adjacent zone
	VerticalResistance float64 // K/W to the sink
	Neighbors          []int   // 4-connected, fewer on the boundary
}

// PowerMap holds the injected power per zone (W), indexed like the zones.
// Refreshed every tick; never negative.
type PowerMap []float64

// Total returns the summed power of all zones.
func (p PowerMap) Total() float64 {
	total := 0.0
	for _, w := range p {
		total += w
	}
	return total
}

// ThermalModel is the continuous-time heat balance shared by the plant, the
// estimator and the controller's heating-rate prediction.
type ThermalModel interface {
	// NumZones returns the dimension of the temperature vector.
	NumZones() int
	// ZoneArea returns the area of one zone in cm², used to convert power to flux.
	ZoneArea() float64
	// Derivative writes dT/dt (°C/s) for every zone into dst.
	// The CHF regime is re-evaluated on every call.
	Derivative(dst, temps []float64, powers PowerMap)
	// Jacobian writes ∂(dT/dt)/∂T, evaluated in the current cooling regime, into dst.
	Jacobian(dst *mat.Dense, temps []float64, powers PowerMap)
}

// Flux converts a zone power (W) into heat flux (W/cm²).
func Flux(power, areaCm2 float64) float64 {
	return power / areaCm2
}

// CHFMargin returns the remaining headroom to the CHF limit in percent.
// Negative once the limit is exceeded.
func CHFMargin(flux, chfLimit float64) float64 {
	return (1.0 - flux/chfLimit) * 100.0
}

// MaxFlux returns the largest zone flux of a power map.
func MaxFlux(powers PowerMap, areaCm2 float64) float64 {
	peak := 0.0
	for _, p := range powers {
		if q := Flux(p, areaCm2); q > peak {
			peak = q
		}
	}
	return peak
}
