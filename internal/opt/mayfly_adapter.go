package opt

import (
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/ellipsoidsolve/internal/problem"
)

// penaltyWeight scales constraint violations in the flattened objective.
// Large enough to dominate the catalog objectives at unit scale.
const penaltyWeight = 1e3

// MayflyAdapter wraps the external Mayfly library to conform to the Solver
// interface. It minimizes the penalty formulation of the problem over the
// bounding box of the guaranteed ball, serving as a derivative-free baseline
// for comparison runs.
type MayflyAdapter struct {
	ballRadius float64
	maxIters   int
	popSize    int
	seed       int64
}

// NewMayfly creates a new Mayfly baseline solver
func NewMayfly(ballRadius float64, maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		ballRadius: ballRadius,
		maxIters:   maxIters,
		popSize:    popSize,
		seed:       seed,
	}
}

// Solve executes the Mayfly optimization using the external library
func (m *MayflyAdapter) Solve(prob *problem.Problem, x0 []float64) (*Result, error) {
	eval := problem.Penalty(prob, penaltyWeight)

	// The external library uses scalar bounds shared by all dimensions, so
	// the search box is the widest interval covering the ball around x0.
	lower, upper := x0[0]-m.ballRadius, x0[0]+m.ballRadius
	for _, v := range x0[1:] {
		if v-m.ballRadius < lower {
			lower = v - m.ballRadius
		}
		if v+m.ballRadius > upper {
			upper = v + m.ballRadius
		}
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = prob.Dimension
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lower
	config.UpperBound = upper

	// Seeded source for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Fall back to the starting point if the library rejects the run
		point := append([]float64(nil), x0...)
		return &Result{
			Point:        point,
			Value:        prob.ObjectiveValue(point),
			MaxViolation: prob.MaxViolation(point),
			Iterations:   0,
			FellBack:     true,
		}, nil
	}

	point := append([]float64(nil), result.GlobalBest.Position...)
	return &Result{
		Point:        point,
		Value:        prob.ObjectiveValue(point),
		MaxViolation: prob.MaxViolation(point),
		Iterations:   m.maxIters,
	}, nil
}
