package solve

import "gonum.org/v1/gonum/mat"

// Constraint pairs a convex function with a subgradient oracle.
//
// Value(x) <= 0 means x satisfies the constraint; positive values measure
// how deeply x violates it. Subgradient(x) may return any vector from the
// subdifferential at x, so non-smooth functions are fine.
//
// The objective of a minimization is modeled as a Constraint too: only its
// subgradient is consulted by the solver, its value is never read.
type Constraint interface {
	Value(x *mat.VecDense) float64
	Subgradient(x *mat.VecDense) *mat.VecDense
}

// Func adapts a pair of closures to the Constraint interface.
type Func struct {
	ValueFunc       func(x *mat.VecDense) float64
	SubgradientFunc func(x *mat.VecDense) *mat.VecDense
}

func (f Func) Value(x *mat.VecDense) float64 { return f.ValueFunc(x) }

func (f Func) Subgradient(x *mat.VecDense) *mat.VecDense { return f.SubgradientFunc(x) }
