package opt

import "github.com/cwbudde/ellipsoidsolve/internal/problem"

// Result holds the output of a solve run
type Result struct {
	// Point is the best point found
	Point []float64
	// Value is the objective's function value at Point
	Value float64
	// MaxViolation is the largest constraint value at Point (0 when feasible)
	MaxViolation float64
	// Iterations is the number of iterations executed
	Iterations int
	// FellBack reports that the backend returned the initial point because
	// the computed point left the guaranteed ball
	FellBack bool
}

// Solver defines a constrained minimization backend
type Solver interface {
	// Solve minimizes prob's objective over its feasible set, starting at x0.
	// x0 must have length prob.Dimension.
	Solve(prob *problem.Problem, x0 []float64) (*Result, error)
}
