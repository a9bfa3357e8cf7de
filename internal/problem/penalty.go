package problem

import "gonum.org/v1/gonum/mat"

// Penalty flattens a constrained problem into an unconstrained evaluation
// function for bound-based optimizers: f(x) + weight * sum(max(0, g_i(x))).
// Larger weights push minimizers toward feasibility at the cost of
// conditioning.
func Penalty(prob *Problem, weight float64) func([]float64) float64 {
	return func(params []float64) float64 {
		x := mat.NewVecDense(len(params), params)
		total := prob.Objective.Value(x)
		for _, c := range prob.Constraints {
			if v := c.Value(x); v > 0 {
				total += weight * v
			}
		}
		return total
	}
}
