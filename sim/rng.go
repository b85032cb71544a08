package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible run. Two runs with the same key and
// the same Scenario produce bit-for-bit identical traces.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random streams consumed by one run.
const (
	// SubsystemSensor draws the Gaussian measurement noise of every zone.
	// Seeded with the master seed itself, so --seed alone fixes the sensor trace.
	SubsystemSensor = "sensor"

	// SubsystemWorkload draws the per-tick activity jitter.
	SubsystemWorkload = "workload"
)

// PartitionedRNG hands out one independent stream per subsystem, so adding
// draws in one subsystem never shifts the samples of another.
//
// The sensor stream is seeded with the master seed; every other stream with
// masterSeed XOR fnv1a64(name).
//
// Not thread-safe. Each Simulator owns its own instance.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream of the named subsystem, creating it on
// first use. Repeated calls return the same *rand.Rand.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}
	seed := int64(p.key)
	if name != SubsystemSensor {
		seed ^= fnv1a64(name)
	}
	r := rand.New(rand.NewSource(seed))
	p.streams[name] = r
	return r
}

// Key returns the SimulationKey the streams derive from.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
