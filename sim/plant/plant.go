package plant

import (
	"fmt"

	"github.com/aipp-t/thermal-sim/sim"
)

// Bounds is the physically sane temperature range. Leaving it is fatal.
type Bounds struct {
	Floor float64 // absolute-zero sanity floor (°C)
	Melt  float64 // silicon melting point (°C)
}

// BoundsFrom extracts the fatal bounds from the safety config.
func BoundsFrom(s sim.SafetyConfig) Bounds {
	return Bounds{Floor: s.FloorTemp, Melt: s.MeltTemp}
}

// Check returns a *sim.PhysicalViolationError for the first zone out of range.
func (b Bounds) Check(tick int64, temps []float64) error {
	for i, t := range temps {
		if t > b.Melt {
			return &sim.PhysicalViolationError{Tick: tick, Zone: i, Temperature: t, Bound: b.Melt}
		}
		if t < b.Floor {
			return &sim.PhysicalViolationError{Tick: tick, Zone: i, Temperature: t, Bound: b.Floor}
		}
	}
	return nil
}

// Plant owns the ground-truth temperature field and advances it one tick at a time.
// Not thread-safe; each simulation owns its own Plant.
type Plant struct {
	model  sim.ThermalModel
	integ  Integrator
	bounds Bounds
	dt     float64
	temps  []float64
	tick   int64
}

// New creates a Plant with every zone at initialTemp.
func New(model sim.ThermalModel, integ Integrator, bounds Bounds, dt, initialTemp float64) *Plant {
	temps := make([]float64, model.NumZones())
	for i := range temps {
		temps[i] = initialTemp
	}
	return &Plant{model: model, integ: integ, bounds: bounds, dt: dt, temps: temps}
}

// Step integrates one tick with the given power injection, then enforces the
// physical bounds. Temperatures are never clamped: a breach is returned as a
// *sim.PhysicalViolationError and the plant must not be stepped again.
func (p *Plant) Step(powers sim.PowerMap) error {
	if len(powers) != len(p.temps) {
		return fmt.Errorf("power map has %d zones, plant has %d: %w", len(powers), len(p.temps), sim.ErrInvalidInput)
	}
	for i, w := range powers {
		if w < 0 {
			return fmt.Errorf("zone %d power %g cannot be negative: %w", i, w, sim.ErrInvalidInput)
		}
	}
	p.integ.Step(p.model, p.temps, powers, p.dt)
	p.tick++
	return p.bounds.Check(p.tick, p.temps)
}

// Temperatures returns the current field. The slice is owned by the plant.
func (p *Plant) Temperatures() []float64 { return p.temps }

// Tick returns the number of completed steps.
func (p *Plant) Tick() int64 { return p.tick }

// Model returns the dynamics the plant integrates.
func (p *Plant) Model() sim.ThermalModel { return p.model }
