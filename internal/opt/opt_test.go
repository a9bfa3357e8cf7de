package opt

import (
	"math"
	"testing"

	"github.com/cwbudde/ellipsoidsolve/internal/problem"
)

// unitDiskProblem builds: minimize x[0] subject to |x|^2 <= 1.
func unitDiskProblem(t *testing.T) *problem.Problem {
	t.Helper()

	spec := problem.Spec{
		Dimension: 2,
		Objective: problem.ObjectiveSpec{Type: "linear", Coeffs: []float64{1, 0}},
		Constraints: []problem.ConstraintSpec{
			{Type: "ball", Center: []float64{0, 0}, Radius: 1},
		},
	}
	prob, err := spec.Build()
	if err != nil {
		t.Fatalf("Failed to build problem: %v", err)
	}
	return prob
}

func TestEllipsoidAdapterOnUnitDisk(t *testing.T) {
	prob := unitDiskProblem(t)
	solver := NewEllipsoid(2, 1e-4, 1000)

	result, err := solver.Solve(prob, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if len(result.Point) != 2 {
		t.Fatalf("Expected 2 parameters, got %d", len(result.Point))
	}
	if math.Abs(result.Point[0]-(-1)) > 0.01 {
		t.Errorf("x[0] = %v, expected near -1", result.Point[0])
	}
	if math.Abs(result.Value-(-1)) > 0.01 {
		t.Errorf("Objective value = %v, expected near -1", result.Value)
	}
	if result.MaxViolation > 0.01 {
		t.Errorf("MaxViolation = %v, expected near 0", result.MaxViolation)
	}
}

func TestMayflyAdapterOnUnitDisk(t *testing.T) {
	prob := unitDiskProblem(t)
	solver := NewMayfly(2, 100, 20, 42) // ballRadius, maxIters, popSize, seed

	result, err := solver.Solve(prob, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if len(result.Point) != 2 {
		t.Fatalf("Expected 2 parameters, got %d", len(result.Point))
	}

	// A metaheuristic baseline is looser than the ellipsoid method; just
	// require clear progress toward the constrained optimum at -1.
	if result.Value > -0.5 {
		t.Errorf("Objective value = %v, expected well below -0.5", result.Value)
	}
	if result.MaxViolation > 0.1 {
		t.Errorf("MaxViolation = %v, expected near 0", result.MaxViolation)
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	prob := unitDiskProblem(t)
	x0 := []float64{0.5, 0.5}

	// Run twice with the same seed (popSize must be >=20 for mayfly v0.1.0)
	first, err := NewMayfly(2, 50, 20, 123).Solve(prob, x0)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := NewMayfly(2, 50, 20, 123).Solve(prob, x0)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if first.Value != second.Value {
		t.Errorf("Non-deterministic: value1=%f, value2=%f", first.Value, second.Value)
	}
}
