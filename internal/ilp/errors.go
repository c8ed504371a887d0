package ilp

import "errors"

var (
	// ErrInfeasible is returned when the covering constraints are
	// unsatisfiable. This should not occur for well-formed instances
	// (a tower on every city is always a cover) but is surfaced rather
	// than silently ignored.
	ErrInfeasible = errors.New("integer program is infeasible")

	// ErrModelTooLarge is returned when the exact encoding would exceed the
	// configured constraint-matrix cap. The exact model carries an auxiliary
	// variable per ordered tower pair and only scales to small instances;
	// larger instances use the relaxed encoding.
	ErrModelTooLarge = errors.New("integer program exceeds configured size cap")

	// ErrNoSolution is returned when the time limit expired before any
	// integral solution was found
	ErrNoSolution = errors.New("no integral solution found within time limit")
)
