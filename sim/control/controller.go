package control

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/aipp-t/thermal-sim/sim"
)

// Strategy names.
const (
	StrategyUnmanaged  = "unmanaged"
	StrategyReactive   = "reactive"
	StrategyPredictive = "predictive"
)

// ValidStrategies is the set of recognized controller names.
var ValidStrategies = map[string]bool{StrategyUnmanaged: true, StrategyReactive: true, StrategyPredictive: true}

// IsValidStrategy reports whether name selects a known controller.
func IsValidStrategy(name string) bool {
	return ValidStrategies[name]
}

// Deps groups what every strategy needs to reason about the die.
type Deps struct {
	Model    sim.ThermalModel
	Power    *sim.DiePower
	Safety   sim.SafetyConfig
	TimeStep float64 // seconds per tick
}

// New creates a controller by name.
// Panics on unrecognized names; check IsValidStrategy first.
func New(name string, d Deps) sim.Controller {
	switch name {
	case StrategyUnmanaged:
		return &Unmanaged{core: newCore(name, d)}
	case StrategyReactive:
		return &Reactive{core: newCore(name, d)}
	case StrategyPredictive:
		return &Predictive{core: newCore(name, d)}
	default:
		panic(fmt.Sprintf("unknown strategy %q", name))
	}
}

// core holds the state shared by every strategy: gating factors, the
// migration latch and the protection state machine.
type core struct {
	name           string
	deps           Deps
	migrationTicks int64
	latch          MigrationLatch
	sm             *StateMachine
	gating         []float64
	powers         sim.PowerMap
	rates          []float64
}

func newCore(name string, d Deps) core {
	n := d.Model.NumZones()
	gating := make([]float64, n)
	for i := range gating {
		gating[i] = 1.0
	}
	ticks := int64(math.Round(d.Safety.MigrationLatency / d.TimeStep))
	if ticks < 1 {
		ticks = 1
	}
	return core{
		name:           name,
		deps:           d,
		migrationTicks: ticks,
		sm:             NewStateMachine(d.Safety.TargetTemp, d.Safety.StableRate),
		gating:         gating,
		powers:         make(sim.PowerMap, n),
		rates:          make([]float64, n),
	}
}

func (c *core) Name() string { return c.name }

// ActivityOverride is the controller-owned residual workload applied for the
// rest of the run once migration has completed.
func (c *core) ActivityOverride() (float64, bool) {
	return c.deps.Safety.ResidualActivity, c.latch.Fired()
}

func (c *core) State() sim.ControllerState {
	g := make([]float64, len(c.gating))
	copy(g, c.gating)
	return sim.ControllerState{
		Mode:      c.sm.State(),
		Gating:    g,
		Countdown: c.latch.Countdown(),
		Migrating: c.latch.Armed(),
		Evacuated: c.latch.Fired(),
	}
}

// StateMachine exposes the protection state machine for reporting.
func (c *core) StateMachine() *StateMachine { return c.sm }

// heatingRates fills c.powers and c.rates with the post-gating power and the
// resulting dT/dt of every zone at the observed temperatures.
func (c *core) heatingRates(obs sim.Observation) error {
	if err := c.deps.Power.Map(c.powers, obs.Temperatures, obs.Activity, c.gating); err != nil {
		return err
	}
	c.deps.Model.Derivative(c.rates, obs.Temperatures, c.powers)
	return nil
}

// timeToViolation returns the smallest TTV across zones.
func (c *core) timeToViolation(temps []float64) float64 {
	ttv := math.Inf(1)
	for i, t := range temps {
		ttv = math.Min(ttv, TimeToViolation(t, c.deps.Safety.TargetTemp, c.rates[i]))
	}
	return ttv
}

// finish arms the latch when requested, advances the countdown and the state
// machine, and assembles the decision.
func (c *core) finish(obs sim.Observation, arm bool, ttv float64) sim.Decision {
	d := sim.Decision{TTV: ttv, HeatingRate: math.Inf(-1)}
	if arm && c.latch.Arm(c.migrationTicks) {
		d.MigrationArmed = true
		logrus.Infof("[tick %07d] %s: migration armed (TTV %.3f ms), evacuating in %d ticks",
			obs.Tick, c.name, ttv*1e3, c.migrationTicks)
	}
	fired := c.latch.Tick()
	if fired {
		d.Evacuated = true
		logrus.Infof("[tick %07d] %s: workload evacuated, residual activity %.2f",
			obs.Tick, c.name, c.deps.Safety.ResidualActivity)
	}

	maxTemp, maxAbsRate, gated := math.Inf(-1), 0.0, false
	for i, t := range obs.Temperatures {
		maxTemp = math.Max(maxTemp, t)
		d.HeatingRate = math.Max(d.HeatingRate, c.rates[i])
		maxAbsRate = math.Max(maxAbsRate, math.Abs(c.rates[i]))
		gated = gated || c.gating[i] < 1.0
	}
	d.State = c.sm.Advance(StateInput{
		Tick:      obs.Tick,
		Gated:     gated,
		Migrating: c.latch.Armed(),
		Evacuated: c.latch.Fired(),
		Fired:     fired,
		MaxTemp:   maxTemp,
		MaxRate:   maxAbsRate,
	})
	d.Gating = make([]float64, len(c.gating))
	copy(d.Gating, c.gating)
	return d
}

// Unmanaged never gates nor migrates. Baseline for estimator studies.
type Unmanaged struct {
	core
}

func (u *Unmanaged) Decide(obs sim.Observation) (sim.Decision, error) {
	if err := u.heatingRates(obs); err != nil {
		return sim.Decision{}, err
	}
	return u.finish(obs, false, u.timeToViolation(obs.Temperatures)), nil
}

// Reactive arms migration only after the hottest zone crosses a fixed trigger.
// It never gates.
type Reactive struct {
	core
}

func (r *Reactive) Decide(obs sim.Observation) (sim.Decision, error) {
	if err := r.heatingRates(obs); err != nil {
		return sim.Decision{}, err
	}
	trip := false
	for _, t := range obs.Temperatures {
		if t >= r.deps.Safety.ReactiveTrigger {
			trip = true
			break
		}
	}
	return r.finish(obs, trip, r.timeToViolation(obs.Temperatures)), nil
}

// Predictive applies instruction-ahead flux gating per zone and arms migration
// when the time-to-violation drops below the migration latency.
type Predictive struct {
	core
}

func (p *Predictive) Decide(obs sim.Observation) (sim.Decision, error) {
	threshold := p.deps.Safety.SafetyThreshold()
	area := p.deps.Model.ZoneArea()
	for i, t := range obs.Temperatures {
		est, err := p.deps.Power.ZonePower(i, t, obs.Activity[i], 1.0)
		if err != nil {
			return sim.Decision{}, fmt.Errorf("zone %d: %w", i, err)
		}
		p.gating[i] = Gate(sim.Flux(est, area), threshold, p.deps.Safety.MinGating)
	}
	if err := p.heatingRates(obs); err != nil {
		return sim.Decision{}, err
	}
	ttv := p.timeToViolation(obs.Temperatures)
	return p.finish(obs, ttv < p.deps.Safety.MigrationLatency, ttv), nil
}
