package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrPhysicalViolation marks a temperature outside the physically sane range.
	// Unrecoverable for the current run.
	ErrPhysicalViolation = errors.New("physical bound violation")

	// ErrInvalidInput marks a malformed input rejected at a component boundary
	// (negative voltage, activity or power).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDeadlineMissed marks a real-time tick whose work exceeded its period.
	ErrDeadlineMissed = errors.New("tick deadline missed")
)

// PhysicalViolationError reports which zone left [floor, melt] and when.
type PhysicalViolationError struct {
	Tick        int64
	Zone        int
	Temperature float64
	Bound       float64 // the bound that was crossed
}

func (e *PhysicalViolationError) Error() string {
	if e.Temperature > e.Bound {
		return fmt.Sprintf("tick %d zone %d: %.1f°C exceeds silicon melting point %.1f°C", e.Tick, e.Zone, e.Temperature, e.Bound)
	}
	return fmt.Sprintf("tick %d zone %d: %.1f°C below physical floor %.1f°C", e.Tick, e.Zone, e.Temperature, e.Bound)
}

func (e *PhysicalViolationError) Unwrap() error {
	return ErrPhysicalViolation
}
