// Package workload supplies the activity signal that drives dynamic power,
// and the floorplan that distributes it across zones.
package workload

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aipp-t/thermal-sim/sim"
)

// ValidProfiles is the set of recognized activity profile names.
var ValidProfiles = map[string]bool{"": true, "constant": true, "burst": true, "trace": true}

// ActivitySource supplies the activity demanded at a tick for a zone.
// Implementations must return a non-negative value.
type ActivitySource interface {
	Activity(tick int64, zone int) float64
}

// Constant demands the same activity on every tick.
type Constant struct {
	Level float64
}

func (c Constant) Activity(_ int64, _ int) float64 { return c.Level }

// Burst demands Peak on ticks in [Start, End) and Base elsewhere.
type Burst struct {
	Base, Peak float64
	Start, End int64
}

func (b Burst) Activity(tick int64, _ int) float64 {
	if tick >= b.Start && tick < b.End {
		return b.Peak
	}
	return b.Base
}

// Trace replays per-tick samples; the last sample is held past the end.
type Trace struct {
	Samples []float64
}

func (t Trace) Activity(tick int64, _ int) float64 {
	if len(t.Samples) == 0 {
		return 0
	}
	if tick >= int64(len(t.Samples)) {
		return t.Samples[len(t.Samples)-1]
	}
	return t.Samples[tick]
}

// PerZone scales another source per zone; zones absent from Scale keep
// the source's activity.
type PerZone struct {
	Source ActivitySource
	Scale  map[int]float64
}

func (p PerZone) Activity(tick int64, zone int) float64 {
	a := p.Source.Activity(tick, zone)
	if s, ok := p.Scale[zone]; ok {
		return a * s
	}
	return a
}

// Jittered adds zero-mean Gaussian noise to another source, clamped at zero.
// Draws are cached per tick so repeated queries within a tick agree.
type Jittered struct {
	Source ActivitySource
	StdDev float64

	rng    *rand.Rand
	tick   int64
	values map[int]float64
}

// NewJittered wraps src with noise drawn from rng.
func NewJittered(src ActivitySource, stdDev float64, rng *rand.Rand) *Jittered {
	return &Jittered{Source: src, StdDev: stdDev, rng: rng, tick: -1, values: make(map[int]float64)}
}

func (j *Jittered) Activity(tick int64, zone int) float64 {
	if tick != j.tick {
		j.tick = tick
		clear(j.values)
	}
	if v, ok := j.values[zone]; ok {
		return v
	}
	v := math.Max(0, j.Source.Activity(tick, zone)+j.rng.NormFloat64()*j.StdDev)
	j.values[zone] = v
	return v
}

// TraceFile is the YAML layout of an activity trace.
type TraceFile struct {
	Samples []float64 `yaml:"samples"`
}

// LoadTrace reads activity samples from a YAML file. Unknown fields are rejected.
func LoadTrace(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading activity trace: %w", err)
	}
	var tf TraceFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&tf); err != nil {
		return nil, fmt.Errorf("parsing activity trace: %w", err)
	}
	return tf.Samples, nil
}

// NewActivitySource builds the profile named by cfg.Profile. Negative activity
// is rejected here, before it can reach the power model.
func NewActivitySource(cfg sim.WorkloadConfig, run sim.RunConfig, rng *sim.PartitionedRNG) (ActivitySource, error) {
	if !ValidProfiles[cfg.Profile] {
		return nil, fmt.Errorf("unknown workload profile %q", cfg.Profile)
	}
	if cfg.Base < 0 || cfg.Peak < 0 || cfg.Jitter < 0 {
		return nil, fmt.Errorf("activity levels must be non-negative (base %g, peak %g, jitter %g): %w",
			cfg.Base, cfg.Peak, cfg.Jitter, sim.ErrInvalidInput)
	}

	var src ActivitySource
	switch cfg.Profile {
	case "", "constant":
		src = Constant{Level: cfg.Base}
	case "burst":
		if cfg.BurstEnd < cfg.BurstStart {
			return nil, fmt.Errorf("burst ends (%g s) before it starts (%g s)", cfg.BurstEnd, cfg.BurstStart)
		}
		src = Burst{Base: cfg.Base, Peak: cfg.Peak, Start: run.TicksFor(cfg.BurstStart), End: run.TicksFor(cfg.BurstEnd)}
	case "trace":
		samples := cfg.Samples
		if cfg.TraceFile != "" {
			loaded, err := LoadTrace(cfg.TraceFile)
			if err != nil {
				return nil, err
			}
			samples = loaded
		}
		if len(samples) == 0 {
			return nil, fmt.Errorf("trace profile needs samples")
		}
		for i, s := range samples {
			if s < 0 {
				return nil, fmt.Errorf("trace sample %d is %g: %w", i, s, sim.ErrInvalidInput)
			}
		}
		src = Trace{Samples: samples}
	}

	if len(cfg.ZoneScale) > 0 {
		for zone, scale := range cfg.ZoneScale {
			if scale < 0 {
				return nil, fmt.Errorf("zone %d scale is %g: %w", zone, scale, sim.ErrInvalidInput)
			}
		}
		src = PerZone{Source: src, Scale: cfg.ZoneScale}
	}
	if cfg.Jitter > 0 {
		src = NewJittered(src, cfg.Jitter, rng.ForSubsystem(sim.SubsystemWorkload))
	}
	return src, nil
}

// Demand fills dst with the activity of every zone at tick.
func Demand(dst []float64, src ActivitySource, tick int64) {
	for i := range dst {
		dst[i] = src.Activity(tick, i)
	}
}
