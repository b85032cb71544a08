package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aipp-t/thermal-sim/sim"
	"github.com/aipp-t/thermal-sim/sim/plant"
)

func TestDynamicBase_HotspotsAndBackground(t *testing.T) {
	// GIVEN the reference floorplan on the 8x8 mesh (zone area 1/64 cm²)
	cfg := sim.DefaultMeshScenario().Workload
	cfg.BackgroundFlux = 64

	// WHEN per-zone dynamic power is derived
	base := DynamicBase(cfg, 64, 1.0/64)

	// THEN hotspot zones carry 300 W/cm² and the rest the background flux
	require.Len(t, base, 64)
	for i, w := range base {
		want := 1.0
		for _, h := range sim.DefaultHotspots {
			if i == h {
				want = 4.6875
			}
		}
		assert.InDelta(t, want, w, 1e-12, "zone %d", i)
	}
}

func TestNewDiePower_PerModel(t *testing.T) {
	// GIVEN the two reference scenarios
	two := sim.DefaultScenario()
	mesh := sim.DefaultMeshScenario()

	// WHEN power models are built for each
	dTwo := NewDiePower(two, plant.NewModel(two))
	dMesh := NewDiePower(mesh, plant.NewModel(mesh))

	// THEN the two-phase die has one 180 W zone and the mesh one per zone
	require.Len(t, dTwo.Zones, 1)
	require.Len(t, dMesh.Zones, 64)
	p, err := dTwo.ZonePower(0, 25, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 180+0.12*0.85*0.85, p, 1e-9)

	hot, err := dMesh.ZonePower(18, 25, 1, 1)
	require.NoError(t, err)
	cold, err := dMesh.ZonePower(0, 25, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4.6875, hot-cold, 1e-9)
}
