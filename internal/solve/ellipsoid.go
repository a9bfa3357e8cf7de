package solve

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimension is returned when the problem has fewer than two variables.
	// The rank-one ellipsoid update degenerates below two dimensions.
	ErrDimension = errors.New("solve: dimension must be at least 2")

	// ErrNoConstraints is returned when the constraint list is empty.
	ErrNoConstraints = errors.New("solve: constraint list must be non-empty")
)

// Options configures a Minimize call.
//
// BallRadius is the caller's guarantee that the optimum lies within that
// distance of the initial point. Accuracy is the stopping tolerance on the
// selected subgradient's norm. BallRadius, Accuracy and MaxIterations are
// expected to be positive; the solver does not validate them beyond the
// dimension and constraint checks.
//
// The loop body runs before the stopping condition is first checked, so
// MaxIterations = 0 still performs exactly one iteration.
type Options struct {
	BallRadius    float64
	Accuracy      float64
	MaxIterations int

	// OnIteration, if non-nil, observes each completed iteration. The Point
	// slice is a copy and safe to retain.
	OnIteration func(Progress)
}

// Progress is a per-iteration snapshot passed to Options.OnIteration.
type Progress struct {
	Iteration       int
	StepRadius      float64
	SubgradientNorm float64
	Point           []float64
}

// Result holds the output of a Minimize call.
type Result struct {
	// Point is the computed minimizer, or a copy of the initial point when
	// FellBack is set.
	Point *mat.VecDense

	// Iterations is the number of loop iterations executed (always >= 1).
	Iterations int

	// SubgradientNorm is the norm of the last selected cutting vector.
	SubgradientNorm float64

	// FellBack reports that the computed point drifted outside the guaranteed
	// ball and the initial point was returned instead. The run produced no
	// trustworthy improvement in that case.
	FellBack bool
}

// Minimize runs Shor's ellipsoid method: minimize the objective subject to
// every constraint's value being <= 0, starting from initial, under the
// assumption that the optimum lies within opts.BallRadius of initial.
//
// The search region is an ellipsoid represented implicitly by the linear map
// taking the unit ball onto it. Each iteration cuts the region with the
// vector chosen by CuttingVector, steps the current point against the cut,
// contracts the map along the cut direction and shrinks the step radius by a
// fixed geometric factor.
//
// All state is local to the call; Minimize is reentrant and performs no I/O.
func Minimize(objective Constraint, constraints []Constraint, initial *mat.VecDense, opts Options) (*Result, error) {
	n := initial.Len()
	if n < 2 {
		return nil, ErrDimension
	}
	if len(constraints) == 0 {
		return nil, ErrNoConstraints
	}

	// Contraction constants depend only on the dimension; compute them once
	// per call.
	dim := float64(n)
	beta := math.Sqrt((dim - 1) / (dim + 1))
	shrink := dim / math.Sqrt(dim*dim-1)

	x := mat.VecDenseCopyOf(initial)
	transform := identity(n)
	reduction := opts.BallRadius / (dim + 1)

	g := CuttingVector(objective, constraints, x)
	gNorm := mat.Norm(g, 2)

	direction := mat.NewVecDense(n, nil)
	step := mat.NewVecDense(n, nil)
	contraction := mat.NewDense(n, n, nil)
	updated := mat.NewDense(n, n, nil)

	iteration := 0
	for {
		// Transform the cutting vector into ellipsoid-local coordinates.
		direction.MulVec(transform.T(), g)
		norm := mat.Norm(direction, 2)
		if norm == 0 {
			// A zero-norm cut has no direction to step along. Stop here
			// instead of dividing by zero and poisoning the transform.
			iteration++
			break
		}
		direction.ScaleVec(1/norm, direction)

		// Step the point against the cut.
		step.MulVec(transform, direction)
		x.AddScaledVec(x, -reduction, step)

		// Rank-one contraction of the shape transform along the cut:
		// transform <- transform * (I + (beta-1) * direction*directionT).
		contraction.Outer(beta-1, direction, direction)
		addIdentity(contraction)
		updated.Mul(transform, contraction)
		transform.Copy(updated)

		reduction *= shrink

		g = CuttingVector(objective, constraints, x)
		gNorm = mat.Norm(g, 2)
		iteration++

		if opts.OnIteration != nil {
			opts.OnIteration(Progress{
				Iteration:       iteration,
				StepRadius:      reduction,
				SubgradientNorm: gNorm,
				Point:           append([]float64(nil), x.RawVector().Data...),
			})
		}

		if gNorm < opts.Accuracy || iteration >= opts.MaxIterations {
			break
		}
	}

	result := &Result{
		Iterations:      iteration,
		SubgradientNorm: gNorm,
	}

	// Validity check: a point outside the guaranteed ball means the
	// ball-containment assumption was violated or the iteration drifted.
	// Return the caller's starting point as the safe fallback.
	displacement := mat.NewVecDense(n, nil)
	displacement.SubVec(x, initial)
	if mat.Norm(displacement, 2) <= opts.BallRadius {
		result.Point = x
	} else {
		result.Point = mat.VecDenseCopyOf(initial)
		result.FellBack = true
	}

	return result, nil
}

// identity returns a fresh n x n identity matrix.
func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// addIdentity adds the identity matrix to m in place.
func addIdentity(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		m.Set(i, i, m.At(i, i)+1)
	}
}
