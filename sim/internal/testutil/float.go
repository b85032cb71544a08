// Package testutil provides assertion helpers shared by the sim/ test packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertFieldWithin checks every element of a per-zone field against [lo, hi].
func AssertFieldWithin(t *testing.T, name string, field []float64, lo, hi float64) {
	t.Helper()
	for i, v := range field {
		if math.IsNaN(v) || v < lo || v > hi {
			t.Errorf("%s[%d] = %v outside [%v, %v]", name, i, v, lo, hi)
		}
	}
}
