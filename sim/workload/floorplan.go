package workload

import "github.com/aipp-t/thermal-sim/sim"

// DynamicBase returns each zone's dynamic power (W) at activity 1.0: hotspot
// zones dissipate HotspotFlux, the rest BackgroundFlux, over zoneArea cm².
func DynamicBase(cfg sim.WorkloadConfig, zones int, zoneArea float64) []float64 {
	base := make([]float64, zones)
	for i := range base {
		base[i] = cfg.BackgroundFlux * zoneArea
	}
	for _, idx := range cfg.Hotspots {
		base[idx] = cfg.HotspotFlux * zoneArea
	}
	return base
}

// NewDiePower builds the per-zone power models for a scenario. The two-phase
// die uses the configured dynamic base directly; the mesh distributes power
// by floorplan.
func NewDiePower(sc sim.Scenario, model sim.ThermalModel) *sim.DiePower {
	if sc.Run.Model == sim.ModelTwoPhase {
		return sim.NewDiePower(sc.Power, []float64{sc.Power.DynamicBase})
	}
	return sim.NewDiePower(sc.Power, DynamicBase(sc.Workload, model.NumZones(), model.ZoneArea()))
}
