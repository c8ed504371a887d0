package geometry

import "fmt"

// Point is an immutable lattice coordinate. Points are compared and hashed
// structurally, so they can be used directly as map keys.
type Point struct {
	X int
	Y int
}

// NewPoint creates a new Point with the given coordinates
func NewPoint(x, y int) Point {
	return Point{X: x, Y: y}
}

// String returns the point formatted as "(x, y)"
func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// FileString returns the point formatted for solution files, e.g. "3 4"
func (p Point) FileString() string {
	return fmt.Sprintf("%d %d", p.X, p.Y)
}

// DistSq returns the squared Euclidean distance between two points.
// All radius comparisons are done in squared-distance space so that
// boundary cases are exact integer comparisons.
func DistSq(a, b Point) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// InBounds reports whether p lies on a dimension x dimension grid
func InBounds(p Point, dimension int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < dimension && p.Y < dimension
}

// Within reports whether q is in-bounds and at most radius units from p
func Within(p, q Point, radius, dimension int) bool {
	if !InBounds(q, dimension) {
		return false
	}
	return DistSq(p, q) <= radius*radius
}

// Less provides a deterministic ordering for points (row-major)
func Less(a, b Point) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
