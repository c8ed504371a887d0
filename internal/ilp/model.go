package ilp

import (
	"gonum.org/v1/gonum/mat"
)

// relation is the sense of a linear constraint row
type relation int

const (
	relEq relation = iota
	relLeq
	relGeq
)

// constraintRow is one linear constraint over the model's variables,
// stored sparsely as variable index -> coefficient
type constraintRow struct {
	terms map[int]float64
	rel   relation
	rhs   float64
}

// model is a binary program: minimize costs subject to rows, with every
// variable in [0, 1]. Only the variables listed in binary are branched on;
// auxiliary variables become integral automatically once those are fixed.
type model struct {
	numVars int
	costs   []float64
	rows    []constraintRow
	binary  []int
}

func newModel() *model {
	return &model{}
}

// addVariable appends a variable with the given objective cost and returns
// its index
func (m *model) addVariable(cost float64) int {
	idx := m.numVars
	m.numVars++
	m.costs = append(m.costs, cost)
	return idx
}

// addRow appends a constraint row
func (m *model) addRow(terms map[int]float64, rel relation, rhs float64) {
	m.rows = append(m.rows, constraintRow{terms: terms, rel: rel, rhs: rhs})
}

// standardForm assembles the LP relaxation of the model with the given
// variables fixed, in the standard form minimize c'x s.t. Ax = b, x >= 0
// expected by the simplex solver. Fixed variables are substituted into the
// right-hand sides; inequality rows gain a slack or surplus column; rows are
// normalized so every right-hand side is non-negative.
//
// The returned colOf maps a free model variable to its column in A.
func (m *model) standardForm(fixed map[int]float64) (c []float64, a *mat.Dense, b []float64, colOf map[int]int) {
	colOf = make(map[int]int, m.numVars)
	for i := 0; i < m.numVars; i++ {
		if _, ok := fixed[i]; !ok {
			colOf[i] = len(colOf)
		}
	}
	numFree := len(colOf)

	numSlack := 0
	for _, row := range m.rows {
		if row.rel != relEq {
			numSlack++
		}
	}

	numCols := numFree + numSlack
	c = make([]float64, numCols)
	for varIdx, col := range colOf {
		c[col] = m.costs[varIdx]
	}

	a = mat.NewDense(len(m.rows), numCols, nil)
	b = make([]float64, len(m.rows))

	slackCol := numFree
	for r, row := range m.rows {
		rhs := row.rhs
		for varIdx, coef := range row.terms {
			if v, ok := fixed[varIdx]; ok {
				rhs -= coef * v
			}
		}

		// Normalize so the right-hand side is non-negative; flipping the
		// row flips the relation sense.
		sign := 1.0
		rel := row.rel
		if rhs < 0 {
			sign = -1.0
			rhs = -rhs
			switch rel {
			case relLeq:
				rel = relGeq
			case relGeq:
				rel = relLeq
			}
		}

		for varIdx, coef := range row.terms {
			if col, ok := colOf[varIdx]; ok {
				a.Set(r, col, sign*coef)
			}
		}
		b[r] = rhs

		switch rel {
		case relLeq:
			a.Set(r, slackCol, 1.0)
			slackCol++
		case relGeq:
			a.Set(r, slackCol, -1.0)
			slackCol++
		}
	}

	return c, a, b, colOf
}

// fixedCost returns the objective contribution of the fixed variables,
// which standardForm drops from the relaxation objective
func (m *model) fixedCost(fixed map[int]float64) float64 {
	total := 0.0
	for varIdx, v := range fixed {
		total += m.costs[varIdx] * v
	}
	return total
}
