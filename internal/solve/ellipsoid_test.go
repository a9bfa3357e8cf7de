package solve

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// firstCoordinate is the objective minimizing x[0]; its subgradient is the
// constant vector (1, 0, ..., 0).
func firstCoordinate(dim int) Constraint {
	return Func{
		ValueFunc: func(x *mat.VecDense) float64 { return x.AtVec(0) },
		SubgradientFunc: func(x *mat.VecDense) *mat.VecDense {
			g := mat.NewVecDense(dim, nil)
			g.SetVec(0, 1)
			return g
		},
	}
}

// unitDisk is the constraint x[0]^2 + x[1]^2 - 1 <= 0.
func unitDisk() Constraint {
	return Func{
		ValueFunc: func(x *mat.VecDense) float64 {
			return x.AtVec(0)*x.AtVec(0) + x.AtVec(1)*x.AtVec(1) - 1
		},
		SubgradientFunc: func(x *mat.VecDense) *mat.VecDense {
			g := mat.NewVecDense(2, nil)
			g.ScaleVec(2, x)
			return g
		},
	}
}

func TestMinimizeDimensionError(t *testing.T) {
	objective := constant(0, 1)
	constraints := []Constraint{constant(-1, 1)}
	x := mat.NewVecDense(1, []float64{0})

	_, err := Minimize(objective, constraints, x, Options{BallRadius: 1, Accuracy: 1e-4, MaxIterations: 10})
	if err != ErrDimension {
		t.Fatalf("Expected ErrDimension, got %v", err)
	}
}

func TestMinimizeNoConstraints(t *testing.T) {
	objective := constant(0, 1, 0)
	x := mat.NewVecDense(2, []float64{0, 0})

	_, err := Minimize(objective, nil, x, Options{BallRadius: 1, Accuracy: 1e-4, MaxIterations: 10})
	if err != ErrNoConstraints {
		t.Fatalf("Expected ErrNoConstraints, got %v", err)
	}
}

func TestMinimizeUnitDisk(t *testing.T) {
	// Minimize x[0] over the unit disk from (0.5, 0.5): the optimum is (-1, 0).
	initial := mat.NewVecDense(2, []float64{0.5, 0.5})

	result, err := Minimize(firstCoordinate(2), []Constraint{unitDisk()}, initial, Options{
		BallRadius:    2,
		Accuracy:      1e-4,
		MaxIterations: 1000,
	})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	if result.FellBack {
		t.Fatal("Expected a converged result, got fallback to the initial point")
	}
	if math.Abs(result.Point.AtVec(0)-(-1)) > 0.01 {
		t.Errorf("x[0] = %v, expected close to -1", result.Point.AtVec(0))
	}
	if math.Abs(result.Point.AtVec(1)) > 0.01 {
		t.Errorf("x[1] = %v, expected close to 0", result.Point.AtVec(1))
	}
}

func TestMinimizeStaysWithinBall(t *testing.T) {
	initial := mat.NewVecDense(2, []float64{0.5, 0.5})

	for _, iters := range []int{1, 5, 50, 1000} {
		result, err := Minimize(firstCoordinate(2), []Constraint{unitDisk()}, initial, Options{
			BallRadius:    2,
			Accuracy:      1e-4,
			MaxIterations: iters,
		})
		if err != nil {
			t.Fatalf("Minimize failed at %d iterations: %v", iters, err)
		}

		displacement := mat.NewVecDense(2, nil)
		displacement.SubVec(result.Point, initial)
		if d := mat.Norm(displacement, 2); d > 2 {
			t.Errorf("Result at %d iterations moved %v from the start, beyond the ball radius 2", iters, d)
		}
	}
}

func TestMinimizeDeterministic(t *testing.T) {
	initial := mat.NewVecDense(2, []float64{0.5, 0.5})
	opts := Options{BallRadius: 2, Accuracy: 1e-4, MaxIterations: 200}

	first, err := Minimize(firstCoordinate(2), []Constraint{unitDisk()}, initial, opts)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := Minimize(firstCoordinate(2), []Constraint{unitDisk()}, initial, opts)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	// Bit-identical, not merely close: the loop has no hidden state.
	for i := 0; i < 2; i++ {
		if first.Point.AtVec(i) != second.Point.AtVec(i) {
			t.Errorf("Component %d differs between runs: %v vs %v", i, first.Point.AtVec(i), second.Point.AtVec(i))
		}
	}
	if first.Iterations != second.Iterations {
		t.Errorf("Iteration counts differ: %d vs %d", first.Iterations, second.Iterations)
	}
}

func TestMinimizeStepRadiusSequence(t *testing.T) {
	initial := mat.NewVecDense(2, []float64{0.5, 0.5})
	ballRadius := 2.0

	var radii []float64
	_, err := Minimize(firstCoordinate(2), []Constraint{unitDisk()}, initial, Options{
		BallRadius:    ballRadius,
		Accuracy:      1e-4,
		MaxIterations: 20,
		OnIteration: func(p Progress) {
			radii = append(radii, p.StepRadius)
		},
	})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	if len(radii) != 20 {
		t.Fatalf("Expected 20 progress reports, got %d", len(radii))
	}

	// After k iterations the step radius is R/(n+1) * (n/sqrt(n^2-1))^k.
	r0 := ballRadius / 3
	shrink := 2 / math.Sqrt(3)
	for k, got := range radii {
		want := r0 * math.Pow(shrink, float64(k+1))
		if math.Abs(got-want) > 1e-12*want {
			t.Errorf("Step radius after %d iterations = %v, expected %v", k+1, got, want)
		}
	}
}

func TestMinimizeZeroIterationLimit(t *testing.T) {
	// The loop body runs before the stopping condition is checked, so a zero
	// iteration limit still performs exactly one iteration.
	initial := mat.NewVecDense(2, []float64{0.5, 0.5})

	result, err := Minimize(firstCoordinate(2), []Constraint{unitDisk()}, initial, Options{
		BallRadius:    2,
		Accuracy:      1e-4,
		MaxIterations: 0,
	})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}
	if result.Iterations != 1 {
		t.Errorf("Expected exactly 1 iteration, got %d", result.Iterations)
	}
}

func TestMinimizeEarlyConvergence(t *testing.T) {
	// The initial subgradient norm is already below the accuracy, but the
	// do-while structure still runs one full iteration before stopping.
	objective := constant(0, 1e-6, 0)
	constraints := []Constraint{constant(-1, 1, 1)}
	initial := mat.NewVecDense(2, []float64{0.5, 0.5})

	result, err := Minimize(objective, constraints, initial, Options{
		BallRadius:    2,
		Accuracy:      1e-4,
		MaxIterations: 1000,
	})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	if result.Iterations != 1 {
		t.Errorf("Expected exactly 1 iteration, got %d", result.Iterations)
	}

	displacement := mat.NewVecDense(2, nil)
	displacement.SubVec(result.Point, initial)
	if d := mat.Norm(displacement, 2); d > 2 {
		t.Errorf("Result moved %v from the start, beyond the ball radius", d)
	}
}

func TestMinimizeZeroSubgradient(t *testing.T) {
	// A zero-norm cutting vector stops the loop instead of producing a
	// non-finite direction.
	objective := constant(0, 0, 0)
	constraints := []Constraint{constant(-1, 1, 1)}
	initial := mat.NewVecDense(2, []float64{0.5, 0.5})

	result, err := Minimize(objective, constraints, initial, Options{
		BallRadius:    2,
		Accuracy:      1e-4,
		MaxIterations: 1000,
	})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	if result.Iterations != 1 {
		t.Errorf("Expected exactly 1 iteration, got %d", result.Iterations)
	}
	if result.FellBack {
		t.Error("Expected no fallback for an unmoved point")
	}
	for i := 0; i < 2; i++ {
		if got := result.Point.AtVec(i); got != initial.AtVec(i) {
			t.Errorf("Component %d = %v, expected the unmoved initial value %v", i, got, initial.AtVec(i))
		}
		if math.IsNaN(result.Point.AtVec(i)) || math.IsInf(result.Point.AtVec(i), 0) {
			t.Errorf("Component %d is non-finite", i)
		}
	}
}

func TestMinimizeFallbackOutsideBall(t *testing.T) {
	// Alternating orthogonal cuts let the accumulated displacement exceed the
	// ball radius; the solver must then return the initial point unchanged.
	calls := 0
	objective := Func{
		ValueFunc: func(x *mat.VecDense) float64 { return 0 },
		SubgradientFunc: func(x *mat.VecDense) *mat.VecDense {
			g := mat.NewVecDense(2, nil)
			g.SetVec(calls%2, 1)
			calls++
			return g
		},
	}
	constraints := []Constraint{constant(-1, 1, 1)}
	initial := mat.NewVecDense(2, []float64{0, 0})

	result, err := Minimize(objective, constraints, initial, Options{
		BallRadius:    1,
		Accuracy:      1e-12,
		MaxIterations: 400,
	})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	if !result.FellBack {
		t.Fatal("Expected fallback to the initial point")
	}
	for i := 0; i < 2; i++ {
		if result.Point.AtVec(i) != initial.AtVec(i) {
			t.Errorf("Component %d = %v, expected the initial value %v", i, result.Point.AtVec(i), initial.AtVec(i))
		}
	}
}
