// Package loop closes the control loop: it owns the plant, the sensors, the
// estimator and the controller of one run and steps them in a fixed order.
//
// Each tick:
//  1. Map the pending activity and the gating decided last tick to power.
//  2. Integrate the plant one step and enforce the physical bounds.
//  3. Sample every zone through a Gaussian sensor and update the estimator.
//  4. Record an operational trip when the hottest zone reaches critical.
//  5. Fetch the activity demanded for the next tick and let the controller
//     decide gating (and migration) on the estimate and that activity.
package loop

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/aipp-t/thermal-sim/sim"
	"github.com/aipp-t/thermal-sim/sim/control"
	"github.com/aipp-t/thermal-sim/sim/estimator"
	"github.com/aipp-t/thermal-sim/sim/plant"
	"github.com/aipp-t/thermal-sim/sim/trace"
	"github.com/aipp-t/thermal-sim/sim/workload"
)

// Simulator runs one strategy against one scenario.
// Not thread-safe; concurrent runs each own a Simulator.
type Simulator struct {
	scenario   sim.Scenario
	runID      string
	plant      *plant.Plant
	power      *sim.DiePower
	estimator  sim.Estimator
	controller sim.Controller
	activity   workload.ActivitySource
	sensor     *rand.Rand
	trace      *trace.RunTrace

	steps    int64
	tick     int64
	pending  []float64 // activity applied on the next tick
	gating   []float64 // gating applied on the next tick
	powers   sim.PowerMap
	measured []float64
	state    sim.ProtectionState
	decision sim.Decision
	tripped  bool
	fatal    error
}

// NewSimulator validates the scenario, builds every component and primes the
// controller with the activity of tick 0.
func NewSimulator(sc sim.Scenario, strategy string, level trace.TraceLevel) (*Simulator, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if !control.IsValidStrategy(strategy) {
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
	if !trace.IsValidTraceLevel(string(level)) {
		return nil, fmt.Errorf("unknown trace level %q", level)
	}

	model := plant.NewModel(sc)
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sc.Run.Seed))
	src, err := workload.NewActivitySource(sc.Workload, sc.Run, rng)
	if err != nil {
		return nil, err
	}
	power := workload.NewDiePower(sc, model)
	n := model.NumZones()
	runID := uuid.NewString()

	s := &Simulator{
		scenario:  sc,
		runID:     runID,
		plant:     plant.New(model, plant.NewIntegrator(sc.Run.Integrator), plant.BoundsFrom(sc.Safety), sc.Run.TimeStep, sc.Run.InitialTemp),
		power:     power,
		estimator: estimator.New(sc, model),
		controller: control.New(strategy, control.Deps{
			Model:    model,
			Power:    power,
			Safety:   sc.Safety,
			TimeStep: sc.Run.TimeStep,
		}),
		activity: src,
		sensor:   rng.ForSubsystem(sim.SubsystemSensor),
		trace: trace.NewRunTrace(trace.TraceConfig{
			Level:    level,
			CHFLimit: sc.Safety.CHFLimit,
			Critical: sc.Safety.CriticalTemp,
		}, runID, strategy),
		steps:    sc.Run.Steps(),
		pending:  make([]float64, n),
		gating:   make([]float64, n),
		powers:   make(sim.PowerMap, n),
		measured: make([]float64, n),
		state:    sim.StateNormal,
	}

	workload.Demand(s.pending, s.activity, 0)
	if err := s.decide(0); err != nil {
		return nil, err
	}
	logrus.Debugf("simulator %s: %s on %d zones, %d ticks of %g s", runID, strategy, n, s.steps, sc.Run.TimeStep)
	return s, nil
}

// decide asks the controller for the gating of tick and adopts it.
func (s *Simulator) decide(tick int64) error {
	dec, err := s.controller.Decide(sim.Observation{
		Tick:         tick,
		Temperatures: s.estimator.Estimate(),
		Activity:     s.pending,
	})
	if err != nil {
		return fmt.Errorf("tick %d: controller %s: %w", tick, s.controller.Name(), err)
	}
	if dec.Evacuated {
		s.applyOverride()
	}
	s.events(tick, dec)
	copy(s.gating, dec.Gating)
	s.decision = dec
	return nil
}

// applyOverride replaces the pending activity with the residual workload once
// the controller has evacuated. The source itself is never edited.
func (s *Simulator) applyOverride() {
	if level, ok := s.controller.ActivityOverride(); ok {
		for i := range s.pending {
			s.pending[i] = level
		}
	}
}

func (s *Simulator) events(tick int64, dec sim.Decision) {
	t := float64(tick) * s.scenario.Run.TimeStep
	if dec.MigrationArmed {
		s.trace.RecordEvent(trace.EventRecord{Tick: tick, Time: t, Kind: trace.EventArmed,
			Detail: fmt.Sprintf("TTV %.3f ms", dec.TTV*1e3)})
	}
	if dec.Evacuated {
		s.trace.RecordEvent(trace.EventRecord{Tick: tick, Time: t, Kind: trace.EventEvacuated})
	}
	if dec.State != s.state {
		s.trace.RecordEvent(trace.EventRecord{Tick: tick, Time: t, Kind: trace.EventTransition,
			Detail: fmt.Sprintf("%s -> %s", s.state, dec.State)})
		s.state = dec.State
	}
}

// Step advances the loop by one tick. A *sim.PhysicalViolationError ends the
// run: it is recorded and every later call returns it again.
func (s *Simulator) Step() error {
	if s.fatal != nil {
		return s.fatal
	}
	k := s.tick
	dt := s.scenario.Run.TimeStep
	truth := s.plant.Temperatures()

	if err := s.power.Map(s.powers, truth, s.pending, s.gating); err != nil {
		return fmt.Errorf("tick %d: %w", k, err)
	}
	if err := s.plant.Step(s.powers); err != nil {
		var pv *sim.PhysicalViolationError
		if errors.As(err, &pv) {
			pv.Tick = k
			s.fatal = pv
			s.trace.RecordEvent(trace.EventRecord{Tick: k, Time: float64(k+1) * dt, Kind: trace.EventFatal, Detail: pv.Error()})
			logrus.Errorf("[tick %07d] %s: %v", k, s.controller.Name(), pv)
			return pv
		}
		return fmt.Errorf("tick %d: %w", k, err)
	}
	truth = s.plant.Temperatures()

	sigma := s.scenario.Noise.SensorStdDev
	for i, t := range truth {
		s.measured[i] = t
		if sigma > 0 {
			s.measured[i] += s.sensor.NormFloat64() * sigma
		}
	}
	est := s.estimator.Update(s.powers, s.measured)

	maxTruth := floats.Max(truth)
	if maxTruth >= s.scenario.Safety.CriticalTemp && !s.tripped {
		s.tripped = true
		s.trace.RecordEvent(trace.EventRecord{Tick: k, Time: float64(k+1) * dt, Kind: trace.EventTrip,
			Detail: fmt.Sprintf("%.2f °C", maxTruth)})
		logrus.Infof("[tick %07d] %s: critical trip at %.2f °C", k, s.controller.Name(), maxTruth)
	}

	record := s.record(k, truth, est)

	workload.Demand(s.pending, s.activity, k+1)
	s.applyOverride()
	if err := s.decide(k + 1); err != nil {
		return err
	}
	record.TTV = s.decision.TTV
	record.HeatingRate = s.decision.HeatingRate
	record.State = string(s.decision.State)
	s.trace.RecordTick(record)

	logrus.Debugf("[tick %07d] T=%.2f est=%.2f P=%.1f W flux=%.1f gating=%.2f state=%s",
		k, record.MaxTruth, record.MaxEstimate, record.TotalPower, record.PeakFlux, record.MinGating, record.State)
	s.tick++
	return nil
}

// record builds the tick record from the quantities in force during tick k.
func (s *Simulator) record(k int64, truth, est []float64) trace.TickRecord {
	area := s.plant.Model().ZoneArea()
	peakFlux := sim.MaxFlux(s.powers, area)
	absErr := 0.0
	for i := range truth {
		absErr += math.Abs(est[i] - truth[i])
	}
	r := trace.TickRecord{
		Tick:         k,
		Time:         float64(k+1) * s.scenario.Run.TimeStep,
		MaxTruth:     floats.Max(truth),
		MaxEstimate:  floats.Max(est),
		MeanAbsError: absErr / float64(len(truth)),
		Gradient:     floats.Max(truth) - floats.Min(truth),
		MinGating:    floats.Min(s.gating),
		TotalPower:   s.powers.Total(),
		PeakFlux:     peakFlux,
		CHFMargin:    sim.CHFMargin(peakFlux, s.scenario.Safety.CHFLimit),
	}
	if s.trace.KeepMaps() {
		r.Truth = append([]float64(nil), truth...)
		r.Estimate = append([]float64(nil), est...)
		r.Gating = append([]float64(nil), s.gating...)
	}
	return r
}

// Run steps the loop over the configured horizon. The result is always
// returned; a fatal violation or context cancellation is also returned as
// the error.
func (s *Simulator) Run(ctx context.Context) (*EvaluationResult, error) {
	start := time.Now()
	var runErr error
	for s.tick < s.steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := s.Step(); err != nil {
			runErr = err
			break
		}
	}
	return s.Result(time.Since(start), runErr), runErr
}

// Result bundles the trace recorded so far.
func (s *Simulator) Result(wall time.Duration, err error) *EvaluationResult {
	return NewEvaluationResult(s.runID, s.controller.Name(), s.trace, trace.Summarize(s.trace), s.tick, wall, err)
}

// Done reports whether the horizon has been reached or the run has failed.
func (s *Simulator) Done() bool { return s.tick >= s.steps || s.fatal != nil }

// Tick returns the number of completed ticks.
func (s *Simulator) Tick() int64 { return s.tick }

// Truth returns the ground-truth field. Owned by the plant.
func (s *Simulator) Truth() []float64 { return s.plant.Temperatures() }

// Estimate returns a copy of the current estimate.
func (s *Simulator) Estimate() []float64 { return s.estimator.Estimate() }

// Controller exposes the strategy for inspection.
func (s *Simulator) Controller() sim.Controller { return s.controller }

// Trace returns the records collected so far.
func (s *Simulator) Trace() *trace.RunTrace { return s.trace }

// Scenario returns the configuration of the run.
func (s *Simulator) Scenario() sim.Scenario { return s.scenario }
