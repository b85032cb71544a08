package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aipp-t/thermal-sim/sim"
)

// Realtime paces a Simulator at one tick per Period of wall-clock time.
// A tick whose work takes longer than Period is a safety fault: the run stops
// with an error wrapping sim.ErrDeadlineMissed.
type Realtime struct {
	Period time.Duration
	// Now reads the clock used to time each tick. Defaults to time.Now.
	Now func() time.Time
	// OnTick, when set, is called after every completed tick.
	OnTick func(s *Simulator)
}

// NewRealtime creates a runner with the wall clock.
func NewRealtime(period time.Duration) *Realtime {
	return &Realtime{Period: period, Now: time.Now}
}

// Run steps s until its horizon, a fatal violation, a missed deadline or
// cancellation of ctx. The partial result is always returned.
func (r *Realtime) Run(ctx context.Context, s *Simulator) (*EvaluationResult, error) {
	if r.Period <= 0 {
		return nil, fmt.Errorf("realtime period must be positive, got %v", r.Period)
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(r.Period)
	defer ticker.Stop()

	start := now()
	for !s.Done() {
		began := now()
		if err := s.Step(); err != nil {
			return s.Result(now().Sub(start), err), err
		}
		if took := now().Sub(began); took > r.Period {
			err := fmt.Errorf("tick %d took %v, period %v: %w", s.Tick()-1, took, r.Period, sim.ErrDeadlineMissed)
			logrus.Errorf("[tick %07d] %v", s.Tick()-1, err)
			return s.Result(now().Sub(start), err), err
		}
		if r.OnTick != nil {
			r.OnTick(s)
		}
		if s.Done() {
			break
		}
		select {
		case <-ctx.Done():
			return s.Result(now().Sub(start), ctx.Err()), ctx.Err()
		case <-ticker.C:
		}
	}
	return s.Result(now().Sub(start), nil), nil
}
