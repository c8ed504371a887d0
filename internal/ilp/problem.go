// Package ilp encodes the tower-placement covering problem as a binary
// integer program and solves it by branch and bound over LP relaxations
// (gonum's simplex solver).
//
// The exact encoding linearizes the interference penalty: an auxiliary
// binary variable per ordered pair of cells within the penalty radius models
// the AND of the two endpoint variables, and the objective minimizes the
// auxiliary sum. This is a deliberate relaxation of the true exponential
// penalty; solutions are coverage-feasible and near-penalty-optimal only.
//
// The relaxed encoding drops the penalty terms and minimizes a seeded,
// randomly perturbed linear combination of the tower variables. It exists to
// produce diverse feasible coverings quickly for seeding local search.
package ilp

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/grid"
	"github.com/placement-opt/placement-core/pkg/logger"
	"github.com/placement-opt/placement-core/pkg/utils"
)

// decodeTol is the distance from 1 within which a relaxation value is
// treated as a placed tower
const decodeTol = 1e-6

// integralityTol is the distance from an integer within which an LP value
// counts as integral during branching
const integralityTol = 1e-6

// Problem is a built integer program for one grid instance
type Problem struct {
	dim     int
	m       *model
	zOf     map[geometry.Point]int
	pointOf []geometry.Point

	timeLimit time.Duration
	log       *slog.Logger
}

// NewExact builds the exact (linearized-penalty) encoding for the given
// grid. maxRows caps the constraint matrix; the pairwise encoding grows as
// dimension^2 * penaltyRadius^2 and only small instances fit.
func NewExact(g *grid.Grid, timeLimit time.Duration, maxRows int) (*Problem, error) {
	p := newProblem(g, timeLimit)
	dim := g.Dimension()
	index := g.Index()

	// Estimate the row count before allocating anything.
	numPairs := 0
	for x := 0; x < dim; x++ {
		for y := 0; y < dim; y++ {
			numPairs += len(index.WithinRadius(geometry.NewPoint(x, y), g.PenaltyRadius(), dim)) - 1
		}
	}
	estRows := g.NumCities() + 3*numPairs + dim*dim
	if estRows > maxRows {
		return nil, fmt.Errorf("exact encoding needs %d rows, cap is %d: %w", estRows, maxRows, ErrModelTooLarge)
	}

	p.addTowerVariables(func(geometry.Point) float64 { return 0 })
	p.addCoverageConstraints(g)

	// Pairwise AND linearization: aux <= z_p, aux <= z_q, aux >= z_p + z_q - 1,
	// minimizing the sum of aux.
	for x := 0; x < dim; x++ {
		for y := 0; y < dim; y++ {
			pt := geometry.NewPoint(x, y)
			zp := p.zOf[pt]
			for q := range index.WithinRadius(pt, g.PenaltyRadius(), dim) {
				if q == pt {
					continue
				}
				zq := p.zOf[q]
				aux := p.m.addVariable(1)
				p.m.addRow(map[int]float64{aux: 1, zp: -1}, relLeq, 0)
				p.m.addRow(map[int]float64{aux: 1, zq: -1}, relLeq, 0)
				p.m.addRow(map[int]float64{zp: 1, zq: 1, aux: -1}, relLeq, 1)
			}
		}
	}

	p.addVariableBounds()

	return p, nil
}

// NewRelaxed builds the randomized relaxed encoding: coverage constraints
// only, with a seeded perturbed linear objective. A fixed seed reproduces a
// fixed solution; varying the seed yields diverse feasible coverings.
func NewRelaxed(g *grid.Grid, seed int64, perturbation float64, timeLimit time.Duration) *Problem {
	p := newProblem(g, timeLimit)
	rng := utils.NewRandSource(seed)
	p.addTowerVariables(func(geometry.Point) float64 {
		return 1.0 + rng.Jitter(perturbation)
	})
	p.addCoverageConstraints(g)
	p.addVariableBounds()
	return p
}

func newProblem(g *grid.Grid, timeLimit time.Duration) *Problem {
	return &Problem{
		dim:       g.Dimension(),
		m:         newModel(),
		zOf:       make(map[geometry.Point]int),
		timeLimit: timeLimit,
		log:       logger.Default,
	}
}

// SetLogger sets the problem's logger
func (p *Problem) SetLogger(l *slog.Logger) {
	p.log = l
}

// addTowerVariables adds one binary decision variable per lattice cell,
// with the objective cost given by costFn
func (p *Problem) addTowerVariables(costFn func(geometry.Point) float64) {
	for x := 0; x < p.dim; x++ {
		for y := 0; y < p.dim; y++ {
			pt := geometry.NewPoint(x, y)
			z := p.m.addVariable(costFn(pt))
			p.zOf[pt] = z
			p.pointOf = append(p.pointOf, pt)
			p.m.binary = append(p.m.binary, z)
		}
	}
}

// addVariableBounds adds z <= 1 for every tower variable. Cells covering no
// city appear in no coverage row, so without these bounds their columns in
// the standard form are all zero and the simplex solver rejects the program.
func (p *Problem) addVariableBounds() {
	for _, z := range p.m.binary {
		p.m.addRow(map[int]float64{z: 1}, relLeq, 1)
	}
}

// addCoverageConstraints requires every city to be covered by at least one
// tower within the service radius
func (p *Problem) addCoverageConstraints(g *grid.Grid) {
	index := g.Index()
	for _, city := range g.Cities() {
		coverage := index.WithinRadius(city, g.ServiceRadius(), p.dim)
		terms := make(map[int]float64, len(coverage))
		for pt := range coverage {
			terms[p.zOf[pt]] = 1
		}
		p.m.addRow(terms, relGeq, 1)
	}
}

// node is one branch-and-bound subproblem
type node struct {
	fixed map[int]float64
}

// Solve runs branch and bound over the LP relaxation and returns the tower
// placement of the best integral solution found. On time-limit expiry the
// incumbent is returned if one exists, ErrNoSolution otherwise; a provably
// infeasible program returns ErrInfeasible.
func (p *Problem) Solve(ctx context.Context) ([]geometry.Point, error) {
	deadline := time.Now().Add(p.timeLimit)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var bestTowers []geometry.Point
	bestCost := math.Inf(1)
	infeasibleRoot := false
	expired := false
	nodesExplored := 0

	stack := []node{{fixed: make(map[int]float64)}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil || time.Now().After(deadline) {
			expired = true
			break
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodesExplored++

		c, a, b, colOf := p.m.standardForm(n.fixed)
		opt, x, err := lp.Simplex(c, a, b, 0, nil)
		if err != nil {
			if err == lp.ErrInfeasible && nodesExplored == 1 {
				infeasibleRoot = true
			}
			// Infeasible or degenerate subproblem: prune.
			continue
		}

		bound := opt + p.m.fixedCost(n.fixed)
		if bound >= bestCost-1e-9 {
			continue
		}

		value := func(varIdx int) float64 {
			if v, ok := n.fixed[varIdx]; ok {
				return v
			}
			return x[colOf[varIdx]]
		}

		branchVar := p.pickBranchVariable(n.fixed, value)
		if branchVar < 0 {
			// All tower variables integral: new incumbent.
			bestCost = bound
			bestTowers = p.decode(value)
			p.log.Debug("integer program incumbent",
				"objective", bound,
				"towers", len(bestTowers),
				"nodes", nodesExplored)
			continue
		}

		// Dive toward placing the tower first.
		zero := cloneFixed(n.fixed)
		zero[branchVar] = 0
		one := cloneFixed(n.fixed)
		one[branchVar] = 1
		stack = append(stack, node{fixed: zero}, node{fixed: one})
	}

	if bestTowers == nil {
		if infeasibleRoot {
			return nil, fmt.Errorf("covering constraints unsatisfiable: %w", ErrInfeasible)
		}
		if expired {
			return nil, fmt.Errorf("time limit %s reached after %d nodes: %w", p.timeLimit, nodesExplored, ErrNoSolution)
		}
		return nil, fmt.Errorf("search exhausted without integral solution: %w", ErrInfeasible)
	}

	p.log.Debug("integer program solved",
		"objective", bestCost,
		"towers", len(bestTowers),
		"nodes", nodesExplored,
		"expired", expired)
	return bestTowers, nil
}

// pickBranchVariable returns the free tower variable whose relaxation value
// is farthest from integral, or -1 when all are integral
func (p *Problem) pickBranchVariable(fixed map[int]float64, value func(int) float64) int {
	best := -1
	bestFrac := integralityTol
	for _, z := range p.m.binary {
		if _, ok := fixed[z]; ok {
			continue
		}
		v := value(z)
		frac := math.Min(v-math.Floor(v), math.Ceil(v)-v)
		if frac > bestFrac {
			bestFrac = frac
			best = z
		}
	}
	return best
}

// decode collects the tower points whose variables sit within decodeTol of 1
func (p *Problem) decode(value func(int) float64) []geometry.Point {
	var towers []geometry.Point
	for i, z := range p.m.binary {
		if math.Abs(value(z)-1.0) < decodeTol {
			towers = append(towers, p.pointOf[i])
		}
	}
	return towers
}

func cloneFixed(fixed map[int]float64) map[int]float64 {
	clone := make(map[int]float64, len(fixed)+1)
	for k, v := range fixed {
		clone[k] = v
	}
	return clone
}
