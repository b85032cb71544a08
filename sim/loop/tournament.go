package loop

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aipp-t/thermal-sim/sim"
	"github.com/aipp-t/thermal-sim/sim/trace"
)

// Tournament runs every strategy against its own copy of the scenario
// concurrently. Results are returned in strategy order.
//
// A physical violation ends only the strategy that caused it and is reported
// in its result. Construction errors and cancellation abort the tournament.
func Tournament(ctx context.Context, sc sim.Scenario, strategies []string, level trace.TraceLevel) ([]*EvaluationResult, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("tournament needs at least one strategy")
	}
	sims := make([]*Simulator, len(strategies))
	for i, name := range strategies {
		s, err := NewSimulator(cloneScenario(sc), name, level)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", name, err)
		}
		sims[i] = s
	}

	results := make([]*EvaluationResult, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sims {
		i, s := i, s
		g.Go(func() error {
			res, err := s.Run(gctx)
			results[i] = res
			switch {
			case err == nil:
				logrus.Infof("strategy %s finished: peak %.2f °C, min CHF margin %.2f %%",
					res.Strategy, res.Summary.PeakTruth, res.Summary.MinCHFMargin)
				return nil
			case errors.Is(err, sim.ErrPhysicalViolation):
				logrus.Warnf("strategy %s stopped: %v", res.Strategy, err)
				return nil
			default:
				return fmt.Errorf("strategy %s: %w", res.Strategy, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// cloneScenario deep-copies the slice and map fields so concurrent runs share
// no mutable state.
func cloneScenario(sc sim.Scenario) sim.Scenario {
	out := sc
	out.Workload.Hotspots = append([]int(nil), sc.Workload.Hotspots...)
	out.Workload.Samples = append([]float64(nil), sc.Workload.Samples...)
	if sc.Workload.ZoneScale != nil {
		out.Workload.ZoneScale = make(map[int]float64, len(sc.Workload.ZoneScale))
		for k, v := range sc.Workload.ZoneScale {
			out.Workload.ZoneScale[k] = v
		}
	}
	return out
}
