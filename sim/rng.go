package sim

import (
	"hash/fnv"
	"math/rand/v2"
)

// PartitionedRNG provides deterministic, isolated random streams per named column.
//
// Derivation: each stream is a PCG generator seeded with (masterSeed, fnv1a64(name)),
// so drawing more values from one column never shifts another column's sequence.
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type PartitionedRNG struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:    seed,
		streams: make(map[string]*rand.Rand),
	}
}

// Stream returns the deterministically-seeded generator for the named stream.
// The same name always returns the same *rand.Rand instance (cached).
// *rand.Rand satisfies rand.Source, so it can feed gonum distributions directly.
func (p *PartitionedRNG) Stream(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewPCG(uint64(p.seed), fnv1a64(name)))
	p.streams[name] = rng
	return rng
}

// Seed returns the master seed.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

var _ rand.Source = (*rand.Rand)(nil)

func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
