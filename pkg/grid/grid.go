package grid

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/placement-opt/placement-core/pkg/geometry"
)

// Penalty model constants: a tower with w peers inside the penalty radius
// contributes penaltyBase * exp(penaltyRate * w) to the total penalty.
const (
	penaltyBase = 170.0
	penaltyRate = 0.17
)

// Grid is the mutable spatial state of a placement problem: a square lattice
// holding a fixed set of cities and a changing set of towers, together with
// the coverage relations between them.
//
// Both relation maps are derived indexes kept incrementally consistent by
// AddTower/RemoveTower/MoveTower:
//
//	towers: tower point -> other towers within the penalty radius (peers)
//	cities: city point  -> towers within the service radius (covering set)
//
// A Grid is not safe for concurrent mutation; solvers either own a Grid
// exclusively or work on a private Clone.
type Grid struct {
	dimension     int
	serviceRadius int
	penaltyRadius int

	index *geometry.Index

	towers map[geometry.Point]map[geometry.Point]struct{}
	cities map[geometry.Point]map[geometry.Point]struct{}
}

// New creates an empty Grid with the given dimension and radii.
// If index is nil a private coverage index is created.
func New(dimension, serviceRadius, penaltyRadius int, index *geometry.Index) *Grid {
	if index == nil {
		index = geometry.NewIndex()
	}
	return &Grid{
		dimension:     dimension,
		serviceRadius: serviceRadius,
		penaltyRadius: penaltyRadius,
		index:         index,
		towers:        make(map[geometry.Point]map[geometry.Point]struct{}),
		cities:        make(map[geometry.Point]map[geometry.Point]struct{}),
	}
}

// Dimension returns the lattice side length
func (g *Grid) Dimension() int { return g.dimension }

// ServiceRadius returns the maximum distance at which a tower covers a city
func (g *Grid) ServiceRadius() int { return g.serviceRadius }

// PenaltyRadius returns the maximum distance at which two towers interfere
func (g *Grid) PenaltyRadius() int { return g.penaltyRadius }

// Index returns the coverage index shared by this grid
func (g *Grid) Index() *geometry.Index { return g.index }

// NumTowers returns the number of placed towers
func (g *Grid) NumTowers() int { return len(g.towers) }

// NumCities returns the number of cities
func (g *Grid) NumCities() int { return len(g.cities) }

// SetDimension sets the lattice side length. It fails once any city or tower
// has been placed, since existing points could fall off the resized grid.
func (g *Grid) SetDimension(dimension int) error {
	if len(g.cities) > 0 || len(g.towers) > 0 {
		return fmt.Errorf("set dimension: grid already populated: %w", ErrInvalidState)
	}
	g.dimension = dimension
	return nil
}

// SetServiceRadius sets the service radius. It fails once any tower exists,
// because the covering sets would no longer match the radius.
func (g *Grid) SetServiceRadius(radius int) error {
	if len(g.towers) > 0 {
		return fmt.Errorf("set service radius: towers already placed: %w", ErrInvalidState)
	}
	g.serviceRadius = radius
	return nil
}

// SetPenaltyRadius sets the penalty radius. It fails once any tower exists.
func (g *Grid) SetPenaltyRadius(radius int) error {
	if len(g.towers) > 0 {
		return fmt.Errorf("set penalty radius: towers already placed: %w", ErrInvalidState)
	}
	g.penaltyRadius = radius
	return nil
}

// AddCity adds a city at (x, y) with an empty covering set. Cities can only
// be added while no towers are placed; the instance topology is frozen before
// optimization begins.
func (g *Grid) AddCity(x, y int) error {
	if len(g.towers) > 0 {
		return fmt.Errorf("add city at (%d, %d): %w", x, y, ErrInvalidState)
	}
	c := geometry.NewPoint(x, y)
	if !geometry.InBounds(c, g.dimension) {
		return fmt.Errorf("add city at %v, dimension %d: %w", c, g.dimension, ErrOutOfBounds)
	}
	if _, ok := g.cities[c]; ok {
		return fmt.Errorf("add city at %v: %w", c, ErrDuplicateEntity)
	}
	g.cities[c] = make(map[geometry.Point]struct{})
	return nil
}

// AddTower places a tower at (x, y), linking it symmetrically to every tower
// within the penalty radius and adding it to the covering set of every city
// within the service radius (including a city at the tower's own point).
func (g *Grid) AddTower(x, y int) error {
	t := geometry.NewPoint(x, y)
	if !geometry.InBounds(t, g.dimension) {
		return fmt.Errorf("add tower at %v, dimension %d: %w", t, g.dimension, ErrOutOfBounds)
	}
	if _, ok := g.towers[t]; ok {
		return fmt.Errorf("add tower at %v: %w", t, ErrDuplicateEntity)
	}

	penalized := g.index.WithinRadius(t, g.penaltyRadius, g.dimension)
	peers := make(map[geometry.Point]struct{})
	for other, otherPeers := range g.towers {
		if _, ok := penalized[other]; ok && other != t {
			otherPeers[t] = struct{}{}
			peers[other] = struct{}{}
		}
	}
	g.towers[t] = peers

	coverage := g.index.WithinRadius(t, g.serviceRadius, g.dimension)
	for c := range coverage {
		if covering, ok := g.cities[c]; ok {
			covering[t] = struct{}{}
		}
	}
	return nil
}

// RemoveTower removes the tower at (x, y), unlinking it from every peer's
// peer set and every city's covering set.
func (g *Grid) RemoveTower(x, y int) error {
	t := geometry.NewPoint(x, y)
	if !geometry.InBounds(t, g.dimension) {
		return fmt.Errorf("remove tower at %v, dimension %d: %w", t, g.dimension, ErrOutOfBounds)
	}
	peers, ok := g.towers[t]
	if !ok {
		return fmt.Errorf("remove tower at %v: %w", t, ErrNotFound)
	}

	for peer := range peers {
		delete(g.towers[peer], t)
	}
	delete(g.towers, t)

	coverage := g.index.WithinRadius(t, g.serviceRadius, g.dimension)
	for c := range coverage {
		if covering, ok := g.cities[c]; ok {
			delete(covering, t)
		}
	}
	return nil
}

// MoveTower relocates a tower from one point to another. It is implemented as
// remove-then-add, not an atomic primitive: callers observing the grid
// mid-move see the transient state with the tower absent.
func (g *Grid) MoveTower(from, to geometry.Point) error {
	if _, ok := g.towers[from]; !ok {
		return fmt.Errorf("move tower from %v: %w", from, ErrNotFound)
	}
	if !geometry.InBounds(to, g.dimension) {
		return fmt.Errorf("move tower to %v, dimension %d: %w", to, g.dimension, ErrOutOfBounds)
	}
	if _, ok := g.towers[to]; ok {
		return fmt.Errorf("move tower to %v: %w", to, ErrDuplicateEntity)
	}
	if err := g.RemoveTower(from.X, from.Y); err != nil {
		return err
	}
	return g.AddTower(to.X, to.Y)
}

// HasTower reports whether a tower is placed at p
func (g *Grid) HasTower(p geometry.Point) bool {
	_, ok := g.towers[p]
	return ok
}

// HasCity reports whether a city exists at p
func (g *Grid) HasCity(p geometry.Point) bool {
	_, ok := g.cities[p]
	return ok
}

// PeerCount returns the number of towers within the penalty radius of the
// tower at p. The second return value is false if no tower is placed there.
func (g *Grid) PeerCount(p geometry.Point) (int, bool) {
	peers, ok := g.towers[p]
	if !ok {
		return 0, false
	}
	return len(peers), true
}

// CoverCount returns the number of towers covering the city at p. The second
// return value is false if no city exists there.
func (g *Grid) CoverCount(p geometry.Point) (int, bool) {
	covering, ok := g.cities[p]
	if !ok {
		return 0, false
	}
	return len(covering), true
}

// Penalty returns the total penalty of the current tower placement. It is
// well-defined even for an invalid grid: coverage does not enter the sum.
func (g *Grid) Penalty() float64 {
	total := 0.0
	for _, peers := range g.towers {
		total += math.Exp(penaltyRate * float64(len(peers)))
	}
	return penaltyBase * total
}

// IsValid reports whether every city is covered by at least one tower.
// A grid with no cities is always valid.
func (g *Grid) IsValid() bool {
	for _, covering := range g.cities {
		if len(covering) == 0 {
			return false
		}
	}
	return true
}

// Towers returns a sorted snapshot of the placed tower points
func (g *Grid) Towers() []geometry.Point {
	points := make([]geometry.Point, 0, len(g.towers))
	for t := range g.towers {
		points = append(points, t)
	}
	sort.Slice(points, func(i, j int) bool { return geometry.Less(points[i], points[j]) })
	return points
}

// Cities returns a sorted snapshot of the city points
func (g *Grid) Cities() []geometry.Point {
	points := make([]geometry.Point, 0, len(g.cities))
	for c := range g.cities {
		points = append(points, c)
	}
	sort.Slice(points, func(i, j int) bool { return geometry.Less(points[i], points[j]) })
	return points
}

// Uncovered returns a sorted snapshot of the cities with empty covering sets
func (g *Grid) Uncovered() []geometry.Point {
	points := make([]geometry.Point, 0)
	for c, covering := range g.cities {
		if len(covering) == 0 {
			points = append(points, c)
		}
	}
	sort.Slice(points, func(i, j int) bool { return geometry.Less(points[i], points[j]) })
	return points
}

// RemoveAllTowers clears every tower and empties all covering sets. City data
// itself is preserved, so restarts can reuse the grid without reloading.
func (g *Grid) RemoveAllTowers() {
	g.towers = make(map[geometry.Point]map[geometry.Point]struct{})
	for _, covering := range g.cities {
		for t := range covering {
			delete(covering, t)
		}
	}
}

// ReplaceAllTowers resets the tower set to exactly the given points. It is a
// no-op when the placement already matches.
func (g *Grid) ReplaceAllTowers(points []geometry.Point) error {
	if len(points) == len(g.towers) {
		same := true
		for _, p := range points {
			if _, ok := g.towers[p]; !ok {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	g.RemoveAllTowers()
	for _, p := range points {
		if err := g.AddTower(p.X, p.Y); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the grid. The coverage index is shared: it is
// an immutable-once-computed cache and safe for concurrent readers.
func (g *Grid) Clone() *Grid {
	clone := &Grid{
		dimension:     g.dimension,
		serviceRadius: g.serviceRadius,
		penaltyRadius: g.penaltyRadius,
		index:         g.index,
		towers:        make(map[geometry.Point]map[geometry.Point]struct{}, len(g.towers)),
		cities:        make(map[geometry.Point]map[geometry.Point]struct{}, len(g.cities)),
	}
	for t, peers := range g.towers {
		copied := make(map[geometry.Point]struct{}, len(peers))
		for p := range peers {
			copied[p] = struct{}{}
		}
		clone.towers[t] = copied
	}
	for c, covering := range g.cities {
		copied := make(map[geometry.Point]struct{}, len(covering))
		for t := range covering {
			copied[t] = struct{}{}
		}
		clone.cities[c] = copied
	}
	return clone
}

// String renders the grid as ASCII art: towers 't', cities 'c', a tower and
// city sharing a point '¢', empty cells '·'. Rows are printed top-down.
func (g *Grid) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Penalty: %v\n", g.Penalty())
	for y := g.dimension - 1; y >= 0; y-- {
		for x := 0; x < g.dimension; x++ {
			p := geometry.NewPoint(x, y)
			_, tower := g.towers[p]
			_, city := g.cities[p]
			switch {
			case tower && city:
				b.WriteString("¢")
			case tower:
				b.WriteString("t")
			case city:
				b.WriteString("c")
			default:
				b.WriteString("·")
			}
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	return b.String()
}
