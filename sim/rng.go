package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible run (spec §5,
// "Determinism... every source of randomness is seeded from a single
// configuration value").
type SimulationKey int64

func NewSimulationKey(seed int64) SimulationKey { return SimulationKey(seed) }

const (
	// SubsystemMinibusPlacement derives the RNG used to scatter minibuses
	// over stations when their initial locations are configured as "random".
	SubsystemMinibusPlacement = "minibus_placement"
	// SubsystemPassengerArrivals derives the RNG used by the OD-matrix
	// Poisson passenger generator.
	SubsystemPassengerArrivals = "passenger_arrivals"
)

// PartitionedRNG hands out one deterministically-seeded *rand.Rand per named
// subsystem, derived from a single master seed by XOR with an FNV-1a hash of
// the subsystem name (spec §9, "Tie-break in the event queue" sibling
// concern: every other source of randomness must be equally reproducible).
// Not safe for concurrent use; the engine is single-threaded (spec §5).
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, subsystems: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the cached RNG for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derived := int64(p.key) ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derived))
	p.subsystems[name] = rng
	return rng
}

func (p *PartitionedRNG) Key() SimulationKey { return p.key }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
