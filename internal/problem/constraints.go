package problem

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Linear is the linear form c.x. Used as an objective its subgradient is the
// coefficient vector; used as a constraint it reads c.x <= 0.
type Linear struct {
	Coeffs []float64
}

func (l Linear) Value(x *mat.VecDense) float64 {
	return mat.Dot(mat.NewVecDense(len(l.Coeffs), l.Coeffs), x)
}

func (l Linear) Subgradient(x *mat.VecDense) *mat.VecDense {
	return mat.NewVecDense(len(l.Coeffs), append([]float64(nil), l.Coeffs...))
}

// L1 is the non-smooth objective sum |x_i|. The sign vector is a valid
// subgradient everywhere, including the kinks at zero coordinates.
type L1 struct {
	Dim int
}

func (l L1) Value(x *mat.VecDense) float64 {
	var sum float64
	for i := 0; i < l.Dim; i++ {
		sum += math.Abs(x.AtVec(i))
	}
	return sum
}

func (l L1) Subgradient(x *mat.VecDense) *mat.VecDense {
	g := mat.NewVecDense(l.Dim, nil)
	for i := 0; i < l.Dim; i++ {
		switch {
		case x.AtVec(i) > 0:
			g.SetVec(i, 1)
		case x.AtVec(i) < 0:
			g.SetVec(i, -1)
		}
	}
	return g
}

// Halfspace is the affine constraint a.x - b <= 0.
type Halfspace struct {
	Normal []float64
	Offset float64
}

func (h Halfspace) Value(x *mat.VecDense) float64 {
	return mat.Dot(mat.NewVecDense(len(h.Normal), h.Normal), x) - h.Offset
}

func (h Halfspace) Subgradient(x *mat.VecDense) *mat.VecDense {
	return mat.NewVecDense(len(h.Normal), append([]float64(nil), h.Normal...))
}

// Ball is the constraint |x - center|^2 - radius^2 <= 0.
type Ball struct {
	Center []float64
	Radius float64
}

func (b Ball) Value(x *mat.VecDense) float64 {
	var sum float64
	for i := range b.Center {
		d := x.AtVec(i) - b.Center[i]
		sum += d * d
	}
	return sum - b.Radius*b.Radius
}

func (b Ball) Subgradient(x *mat.VecDense) *mat.VecDense {
	g := mat.NewVecDense(len(b.Center), nil)
	for i := range b.Center {
		g.SetVec(i, 2*(x.AtVec(i)-b.Center[i]))
	}
	return g
}

// QuadraticDiag is the separable quadratic constraint sum q_i*x_i^2 - bound <= 0.
// All q_i must be non-negative for the constraint to be convex; Spec.Build
// enforces that.
type QuadraticDiag struct {
	Coeffs []float64
	Bound  float64
}

func (q QuadraticDiag) Value(x *mat.VecDense) float64 {
	var sum float64
	for i, c := range q.Coeffs {
		sum += c * x.AtVec(i) * x.AtVec(i)
	}
	return sum - q.Bound
}

func (q QuadraticDiag) Subgradient(x *mat.VecDense) *mat.VecDense {
	g := mat.NewVecDense(len(q.Coeffs), nil)
	for i, c := range q.Coeffs {
		g.SetVec(i, 2*c*x.AtVec(i))
	}
	return g
}
