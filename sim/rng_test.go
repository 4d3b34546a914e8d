package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat/distuv"
)

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: same seed and name produce the same sequence
	rng1 := NewPartitionedRNG(42)
	rng2 := NewPartitionedRNG(42)

	for i := 0; i < 3; i++ {
		assert.Equal(t, rng1.Stream("house_area_m2").Float64(), rng2.Stream("house_area_m2").Float64(), "draw %d", i)
	}
}

func TestPartitionedRNG_StreamIsolation(t *testing.T) {
	// BDD: drawing from stream A does not shift stream B
	rngA := NewPartitionedRNG(42)
	rngB := NewPartitionedRNG(42)

	for i := 0; i < 100; i++ {
		rngA.Stream("soil_complexity").Float64()
	}

	assert.Equal(t, rngB.Stream("mortgage_rate").Float64(), rngA.Stream("mortgage_rate").Float64())
}

func TestPartitionedRNG_CachesStreams(t *testing.T) {
	rng := NewPartitionedRNG(7)
	assert.Same(t, rng.Stream("a"), rng.Stream("a"))
	assert.NotSame(t, rng.Stream("a"), rng.Stream("b"))
	assert.Equal(t, int64(7), rng.Seed())
}

func TestPartitionedRNG_DifferentSeeds_Differ(t *testing.T) {
	a := NewPartitionedRNG(1).Stream("x").Uint64()
	b := NewPartitionedRNG(2).Stream("x").Uint64()
	assert.NotEqual(t, a, b)
}

func TestPartitionedRNG_StreamDrivesGonumDistributions(t *testing.T) {
	// GIVEN two partitioned generators with the same seed
	a, b := NewPartitionedRNG(42), NewPartitionedRNG(42)

	// WHEN each stream feeds a gonum distribution
	na := distuv.Normal{Mu: 0, Sigma: 1, Src: a.Stream("crew")}
	nb := distuv.Normal{Mu: 0, Sigma: 1, Src: b.Stream("crew")}

	// THEN the draws are reproducible
	for i := 0; i < 5; i++ {
		assert.Equal(t, na.Rand(), nb.Rand())
	}
}
