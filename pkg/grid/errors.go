package grid

import "errors"

// Structural errors returned by Grid mutations. These indicate a bug in the
// caller's logic rather than a property of the search space, so solvers abort
// the current attempt instead of correcting them silently.
var (
	// ErrOutOfBounds is returned when a coordinate lies outside [0, dimension)
	ErrOutOfBounds = errors.New("coordinates off the edge of the grid")

	// ErrDuplicateEntity is returned when a city or tower already occupies the point
	ErrDuplicateEntity = errors.New("entity already present at point")

	// ErrNotFound is returned when removing or moving a tower that does not exist
	ErrNotFound = errors.New("no tower at point")

	// ErrInvalidState is returned when an operation is not allowed in the
	// grid's current lifecycle state, e.g. adding a city after towers exist
	ErrInvalidState = errors.New("operation not allowed in current grid state")
)
