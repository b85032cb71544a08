package control

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/aipp-t/thermal-sim/sim"
)

// MigrationLatch is the one-shot evacuation countdown. Once armed it can be
// neither re-armed nor cancelled until it fires.
type MigrationLatch struct {
	armed     bool
	countdown int64
	fired     bool
}

// Arm starts a countdown of ticks. Returns false (and changes nothing) while a
// countdown is running or after the latch has fired.
func (l *MigrationLatch) Arm(ticks int64) bool {
	if l.armed || l.fired {
		return false
	}
	l.armed = true
	l.countdown = ticks
	return true
}

// Tick decrements a running countdown. Returns true on the tick it reaches zero.
func (l *MigrationLatch) Tick() bool {
	if !l.armed {
		return false
	}
	l.countdown--
	if l.countdown <= 0 {
		l.armed = false
		l.countdown = 0
		l.fired = true
		return true
	}
	return false
}

func (l *MigrationLatch) Armed() bool      { return l.armed }
func (l *MigrationLatch) Fired() bool      { return l.fired }
func (l *MigrationLatch) Countdown() int64 { return l.countdown }

// Transition records a state change.
type Transition struct {
	Tick     int64
	From, To sim.ProtectionState
}

// StateInput is what the state machine needs from a control tick.
type StateInput struct {
	Tick      int64
	Gated     bool    // any zone gating factor < 1
	Migrating bool    // latch countdown running
	Evacuated bool    // latch has fired
	Fired     bool    // latch fired during this tick
	MaxTemp   float64 // hottest zone estimate
	MaxRate   float64 // largest |dT/dt| across zones
}

// StateMachine tracks NORMAL → GATED → MIGRATING → COOLDOWN → NORMAL.
type StateMachine struct {
	target     float64
	stableRate float64
	state      sim.ProtectionState
	history    []Transition
	ticksIn    map[sim.ProtectionState]int64
}

// NewStateMachine starts in NORMAL. COOLDOWN ends once the hottest zone is
// below target and no zone changes faster than stableRate (°C/s).
func NewStateMachine(target, stableRate float64) *StateMachine {
	return &StateMachine{
		target:     target,
		stableRate: stableRate,
		state:      sim.StateNormal,
		ticksIn:    make(map[sim.ProtectionState]int64),
	}
}

// Advance applies one tick of input and returns the resulting state.
func (m *StateMachine) Advance(in StateInput) sim.ProtectionState {
	next := m.state
	switch {
	case in.Migrating:
		next = sim.StateMigrating
	case in.Fired, m.state == sim.StateMigrating && in.Evacuated:
		next = sim.StateCooldown
	case m.state == sim.StateCooldown:
		if in.MaxTemp < m.target && math.Abs(in.MaxRate) < m.stableRate {
			next = sim.StateNormal
		}
	case in.Gated:
		next = sim.StateGated
	default:
		next = sim.StateNormal
	}
	if next != m.state {
		logrus.Infof("[tick %07d] protection %s -> %s", in.Tick, m.state, next)
		m.history = append(m.history, Transition{Tick: in.Tick, From: m.state, To: next})
		m.state = next
	}
	m.ticksIn[m.state]++
	return m.state
}

func (m *StateMachine) State() sim.ProtectionState { return m.state }

// History returns every transition so far.
func (m *StateMachine) History() []Transition { return m.history }

// TicksIn returns how many ticks ended in state s.
func (m *StateMachine) TicksIn(s sim.ProtectionState) int64 { return m.ticksIn[s] }
