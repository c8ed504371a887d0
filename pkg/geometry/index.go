package geometry

import "sync"

// coverageKey identifies a memoized radius query
type coverageKey struct {
	center    Point
	radius    int
	dimension int
}

// Index answers radius coverage queries over a bounded lattice and memoizes
// the results. The same (radius, dimension) pairs recur across an entire
// optimization run, so every query is cached the first time it is computed.
//
// An Index is an explicitly-owned cache: construct one at startup and pass it
// to every Grid and solver that needs coverage queries. It is safe for
// concurrent use.
type Index struct {
	mu   sync.RWMutex
	memo map[coverageKey]map[Point]struct{}
}

// NewIndex creates an empty coverage index
func NewIndex() *Index {
	return &Index{
		memo: make(map[coverageKey]map[Point]struct{}),
	}
}

// WithinRadius returns the set of lattice points q with 0 <= q.X,q.Y < dimension
// whose squared Euclidean distance from center is at most radius^2. The center
// itself is included when it is in bounds.
//
// The returned set is shared with the index's cache and must not be modified.
func (ix *Index) WithinRadius(center Point, radius, dimension int) map[Point]struct{} {
	key := coverageKey{center: center, radius: radius, dimension: dimension}

	ix.mu.RLock()
	cached, ok := ix.memo[key]
	ix.mu.RUnlock()
	if ok {
		return cached
	}

	computed := ComputeWithinRadius(center, radius, dimension)

	ix.mu.Lock()
	// Another goroutine may have raced us here; keep whichever landed first
	// so callers holding the earlier set stay consistent.
	if existing, ok := ix.memo[key]; ok {
		ix.mu.Unlock()
		return existing
	}
	ix.memo[key] = computed
	ix.mu.Unlock()
	return computed
}

// Preload computes and caches the coverage sets for every cell of a
// dimension x dimension grid at the given radius
func (ix *Index) Preload(radius, dimension int) {
	for x := 0; x < dimension; x++ {
		for y := 0; y < dimension; y++ {
			ix.WithinRadius(NewPoint(x, y), radius, dimension)
		}
	}
}

// Seed installs precomputed coverage sets, typically loaded from the
// persisted coverage cache. Entries already present are kept.
func (ix *Index) Seed(radius, dimension int, coverage map[Point][]Point) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for center, points := range coverage {
		key := coverageKey{center: center, radius: radius, dimension: dimension}
		if _, ok := ix.memo[key]; ok {
			continue
		}
		set := make(map[Point]struct{}, len(points))
		for _, p := range points {
			set[p] = struct{}{}
		}
		ix.memo[key] = set
	}
}

// Size returns the number of memoized coverage sets
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.memo)
}

// ComputeWithinRadius computes a coverage set directly, without caching.
// All arithmetic is in integer squared-distance space.
func ComputeWithinRadius(center Point, radius, dimension int) map[Point]struct{} {
	result := make(map[Point]struct{})
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			q := NewPoint(center.X+dx, center.Y+dy)
			if Within(center, q, radius, dimension) {
				result[q] = struct{}{}
			}
		}
	}
	return result
}
