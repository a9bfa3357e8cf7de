package opt

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/ellipsoidsolve/internal/problem"
	"github.com/cwbudde/ellipsoidsolve/internal/solve"
)

// EllipsoidAdapter wraps the ellipsoid core to conform to the Solver interface
type EllipsoidAdapter struct {
	ballRadius    float64
	accuracy      float64
	maxIterations int

	// OnIteration is forwarded to the core for progress observation
	OnIteration func(solve.Progress)
}

// NewEllipsoid creates a new ellipsoid-method solver
func NewEllipsoid(ballRadius, accuracy float64, maxIterations int) *EllipsoidAdapter {
	return &EllipsoidAdapter{
		ballRadius:    ballRadius,
		accuracy:      accuracy,
		maxIterations: maxIterations,
	}
}

// Solve runs the ellipsoid method on the problem
func (e *EllipsoidAdapter) Solve(prob *problem.Problem, x0 []float64) (*Result, error) {
	initial := mat.NewVecDense(len(x0), append([]float64(nil), x0...))

	result, err := solve.Minimize(prob.Objective, prob.Constraints, initial, solve.Options{
		BallRadius:    e.ballRadius,
		Accuracy:      e.accuracy,
		MaxIterations: e.maxIterations,
		OnIteration:   e.OnIteration,
	})
	if err != nil {
		return nil, err
	}

	point := append([]float64(nil), result.Point.RawVector().Data...)
	return &Result{
		Point:        point,
		Value:        prob.ObjectiveValue(point),
		MaxViolation: prob.MaxViolation(point),
		Iterations:   result.Iterations,
		FellBack:     result.FellBack,
	}, nil
}
