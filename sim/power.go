package sim

import (
	"fmt"
	"math"
)

// PowerModel maps (voltage, temperature, activity, gating factor) to power in watts.
type PowerModel interface {
	Power(voltage, temperature, activity, gating float64) (float64, error)
}

// LeakagePowerModel is dynamic power scaled by activity, gating and V², plus
// leakage that grows exponentially with temperature:
//
//	P = base * activity * gating * (V/Vnom)² + kLeak * V² * exp(alphaT * (T - Tref))
type LeakagePowerModel struct {
	DynamicBase      float64 // W at activity 1.0, gating 1.0, nominal voltage
	NominalVoltage   float64
	LeakageCoeff     float64
	LeakageTempCoeff float64
	ReferenceTemp    float64
}

// NewLeakagePowerModel builds the die-level model from config.
func NewLeakagePowerModel(cfg PowerConfig) *LeakagePowerModel {
	return &LeakagePowerModel{
		DynamicBase:      cfg.DynamicBase,
		NominalVoltage:   cfg.NominalVoltage,
		LeakageCoeff:     cfg.LeakageCoeff,
		LeakageTempCoeff: cfg.LeakageTempCoeff,
		ReferenceTemp:    cfg.ReferenceTemp,
	}
}

// Power rejects negative voltage or activity and gating outside [0,1].
func (m *LeakagePowerModel) Power(voltage, temperature, activity, gating float64) (float64, error) {
	if voltage < 0 {
		return 0, fmt.Errorf("voltage %g cannot be negative: %w", voltage, ErrInvalidInput)
	}
	if activity < 0 {
		return 0, fmt.Errorf("activity %g cannot be negative: %w", activity, ErrInvalidInput)
	}
	if gating < 0 || gating > 1 || math.IsNaN(gating) {
		return 0, fmt.Errorf("gating factor %g outside [0,1]: %w", gating, ErrInvalidInput)
	}
	ratio := voltage / m.NominalVoltage
	dynamic := m.DynamicBase * activity * gating * ratio * ratio
	leakage := m.LeakageCoeff * voltage * voltage * math.Exp(m.LeakageTempCoeff*(temperature-m.ReferenceTemp))
	return dynamic + leakage, nil
}

// DiePower evaluates one PowerModel per zone at a shared supply voltage.
type DiePower struct {
	Voltage float64
	Zones   []PowerModel
}

// NewDiePower builds per-zone power models. dynamicBase holds each zone's
// dynamic power at activity 1.0; die leakage is split evenly across zones.
func NewDiePower(cfg PowerConfig, dynamicBase []float64) *DiePower {
	n := float64(len(dynamicBase))
	zones := make([]PowerModel, len(dynamicBase))
	for i, base := range dynamicBase {
		zones[i] = &LeakagePowerModel{
			DynamicBase:      base,
			NominalVoltage:   cfg.NominalVoltage,
			LeakageCoeff:     cfg.LeakageCoeff / n,
			LeakageTempCoeff: cfg.LeakageTempCoeff,
			ReferenceTemp:    cfg.ReferenceTemp,
		}
	}
	return &DiePower{Voltage: cfg.Voltage, Zones: zones}
}

// Map fills dst with the power of every zone. gating may be nil (no gating).
func (d *DiePower) Map(dst PowerMap, temps, activity, gating []float64) error {
	for i, m := range d.Zones {
		g := 1.0
		if gating != nil {
			g = gating[i]
		}
		p, err := m.Power(d.Voltage, temps[i], activity[i], g)
		if err != nil {
			return fmt.Errorf("zone %d: %w", i, err)
		}
		dst[i] = p
	}
	return nil
}

// ZonePower evaluates a single zone.
func (d *DiePower) ZonePower(zone int, temp, activity, gating float64) (float64, error) {
	return d.Zones[zone].Power(d.Voltage, temp, activity, gating)
}
