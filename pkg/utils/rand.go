package utils

import (
	"math/rand"
	"time"
)

// RandSource is a seeded random number generator. A zero seed picks a
// time-based one. It is not safe for concurrent use; each solver worker
// owns its own source.
type RandSource struct {
	seed int64
	rng  *rand.Rand
}

// NewRandSource creates a new random source with the given seed
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed this source was created with
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// Int63 returns a non-negative random int64
func (r *RandSource) Int63() int64 {
	return r.rng.Int63()
}

// Perm returns a random permutation of [0, n)
func (r *RandSource) Perm(n int) []int {
	return r.rng.Perm(n)
}

// Shuffle randomizes the order of n elements using the given swap function
func (r *RandSource) Shuffle(n int, swap func(i, j int)) {
	r.rng.Shuffle(n, swap)
}

// Jitter returns a random float64 in [-scale, scale)
func (r *RandSource) Jitter(scale float64) float64 {
	return scale * (2.0*r.rng.Float64() - 1.0)
}
