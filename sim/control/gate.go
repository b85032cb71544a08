// Package control implements the protection strategies that turn a zone
// temperature estimate into per-zone gating factors and migration decisions.
package control

import "math"

// Gate returns the gating factor for an estimated flux. Below the safety
// threshold it is 1; above, threshold/flux floored at minFactor.
func Gate(flux, threshold, minFactor float64) float64 {
	if flux <= threshold {
		return 1.0
	}
	return math.Max(minFactor, threshold/flux)
}

// TimeToViolation extrapolates linearly how long (s) until temp reaches target
// at the given heating rate (°C/s). A non-positive or undefined rate means
// cooling or equilibrium and yields +Inf. Already at or above target yields 0.
func TimeToViolation(temp, target, rate float64) float64 {
	if !(rate > 0) {
		return math.Inf(1)
	}
	if temp >= target {
		return 0
	}
	return (target - temp) / rate
}
