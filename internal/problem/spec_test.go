package problem

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func unitDiskSpec() *Spec {
	return &Spec{
		Dimension: 2,
		Objective: ObjectiveSpec{Type: "linear", Coeffs: []float64{1, 0}},
		Constraints: []ConstraintSpec{
			{Type: "ball", Center: []float64{0, 0}, Radius: 1},
		},
	}
}

func TestSpecBuild(t *testing.T) {
	prob, err := unitDiskSpec().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if prob.Dimension != 2 {
		t.Errorf("Dimension = %d, expected 2", prob.Dimension)
	}
	if len(prob.Constraints) != 1 {
		t.Fatalf("Expected 1 constraint, got %d", len(prob.Constraints))
	}

	// Interior point is feasible, exterior point is violated.
	inside := mat.NewVecDense(2, []float64{0.5, 0})
	if v := prob.Constraints[0].Value(inside); v >= 0 {
		t.Errorf("Interior point has constraint value %v, expected negative", v)
	}
	outside := mat.NewVecDense(2, []float64{2, 0})
	if v := prob.Constraints[0].Value(outside); v <= 0 {
		t.Errorf("Exterior point has constraint value %v, expected positive", v)
	}
}

func TestSpecBuildRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
	}{
		{"dimension too small", Spec{Dimension: 1, Objective: ObjectiveSpec{Type: "l1"}, Constraints: []ConstraintSpec{{Type: "ball", Center: []float64{0}, Radius: 1}}}},
		{"no constraints", Spec{Dimension: 2, Objective: ObjectiveSpec{Type: "l1"}}},
		{"unknown objective", Spec{Dimension: 2, Objective: ObjectiveSpec{Type: "cubic"}, Constraints: []ConstraintSpec{{Type: "ball", Center: []float64{0, 0}, Radius: 1}}}},
		{"objective coeff mismatch", Spec{Dimension: 2, Objective: ObjectiveSpec{Type: "linear", Coeffs: []float64{1}}, Constraints: []ConstraintSpec{{Type: "ball", Center: []float64{0, 0}, Radius: 1}}}},
		{"unknown constraint", Spec{Dimension: 2, Objective: ObjectiveSpec{Type: "l1"}, Constraints: []ConstraintSpec{{Type: "simplex"}}}},
		{"ball bad radius", Spec{Dimension: 2, Objective: ObjectiveSpec{Type: "l1"}, Constraints: []ConstraintSpec{{Type: "ball", Center: []float64{0, 0}, Radius: 0}}}},
		{"non-convex quadratic", Spec{Dimension: 2, Objective: ObjectiveSpec{Type: "l1"}, Constraints: []ConstraintSpec{{Type: "quadratic", Coeffs: []float64{1, -1}, Bound: 1}}}},
	}

	for _, tc := range cases {
		if _, err := tc.spec.Build(); err == nil {
			t.Errorf("%s: expected Build to fail", tc.name)
		}
	}
}

func TestConstraintValues(t *testing.T) {
	x := mat.NewVecDense(2, []float64{3, -4})

	linear := Linear{Coeffs: []float64{2, 1}}
	if v := linear.Value(x); v != 2 {
		t.Errorf("Linear value = %v, expected 2", v)
	}
	gotGrad := linear.Subgradient(x)
	if gotGrad.AtVec(0) != 2 || gotGrad.AtVec(1) != 1 {
		t.Errorf("Linear subgradient = (%v, %v), expected (2, 1)", gotGrad.AtVec(0), gotGrad.AtVec(1))
	}

	l1 := L1{Dim: 2}
	if v := l1.Value(x); v != 7 {
		t.Errorf("L1 value = %v, expected 7", v)
	}
	gotGrad = l1.Subgradient(x)
	if gotGrad.AtVec(0) != 1 || gotGrad.AtVec(1) != -1 {
		t.Errorf("L1 subgradient = (%v, %v), expected (1, -1)", gotGrad.AtVec(0), gotGrad.AtVec(1))
	}

	// At a kink the zero subgradient is valid.
	kink := mat.NewVecDense(2, []float64{0, 0})
	gotGrad = l1.Subgradient(kink)
	if gotGrad.AtVec(0) != 0 || gotGrad.AtVec(1) != 0 {
		t.Errorf("L1 subgradient at the kink = (%v, %v), expected (0, 0)", gotGrad.AtVec(0), gotGrad.AtVec(1))
	}

	halfspace := Halfspace{Normal: []float64{1, 0}, Offset: 1}
	if v := halfspace.Value(x); v != 2 {
		t.Errorf("Halfspace value = %v, expected 2", v)
	}

	ball := Ball{Center: []float64{0, 0}, Radius: 5}
	if v := ball.Value(x); v != 0 {
		t.Errorf("Ball value on the boundary = %v, expected 0", v)
	}
	gotGrad = ball.Subgradient(x)
	if gotGrad.AtVec(0) != 6 || gotGrad.AtVec(1) != -8 {
		t.Errorf("Ball subgradient = (%v, %v), expected (6, -8)", gotGrad.AtVec(0), gotGrad.AtVec(1))
	}

	quad := QuadraticDiag{Coeffs: []float64{1, 2}, Bound: 41}
	if v := quad.Value(x); v != 0 {
		t.Errorf("Quadratic value = %v, expected 0", v)
	}
	gotGrad = quad.Subgradient(x)
	if gotGrad.AtVec(0) != 6 || gotGrad.AtVec(1) != -16 {
		t.Errorf("Quadratic subgradient = (%v, %v), expected (6, -16)", gotGrad.AtVec(0), gotGrad.AtVec(1))
	}
}

func TestResidualsAndViolation(t *testing.T) {
	spec := Spec{
		Dimension: 2,
		Objective: ObjectiveSpec{Type: "linear", Coeffs: []float64{1, 0}},
		Constraints: []ConstraintSpec{
			{Type: "ball", Center: []float64{0, 0}, Radius: 1},
			{Type: "halfspace", Normal: []float64{0, 1}, Offset: 0},
		},
	}
	prob, err := spec.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	residuals := prob.Residuals([]float64{0, 2})
	if len(residuals) != 2 {
		t.Fatalf("Expected 2 residuals, got %d", len(residuals))
	}
	if residuals[0] != 3 { // 4 - 1
		t.Errorf("Ball residual = %v, expected 3", residuals[0])
	}
	if residuals[1] != 2 {
		t.Errorf("Halfspace residual = %v, expected 2", residuals[1])
	}

	if v := prob.MaxViolation([]float64{0, 2}); v != 3 {
		t.Errorf("MaxViolation = %v, expected 3", v)
	}
	if v := prob.MaxViolation([]float64{0, -0.5}); v != 0 {
		t.Errorf("MaxViolation at a feasible point = %v, expected 0", v)
	}
}

func TestPenalty(t *testing.T) {
	prob, err := unitDiskSpec().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	eval := Penalty(prob, 100)

	// Feasible point: penalty adds nothing.
	if got := eval([]float64{0.5, 0}); got != 0.5 {
		t.Errorf("Penalty at a feasible point = %v, expected 0.5", got)
	}

	// Infeasible point: objective 2 plus 100 * (4 - 1).
	got := eval([]float64{2, 0})
	if math.Abs(got-302) > 1e-12 {
		t.Errorf("Penalty at an infeasible point = %v, expected 302", got)
	}
}
