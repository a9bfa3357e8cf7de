package solve

import "gonum.org/v1/gonum/mat"

// CuttingVector picks the subgradient to cut the search region with at x.
//
// Every constraint is evaluated at x and the deepest violation wins the cut
// (a feasibility cut). Ties go to the first constraint in list order; the
// scan is an explicit linear pass so selection is reproducible across
// platforms. If the maximum value is <= 0 the point is feasible and the
// objective's subgradient is returned instead (an objective cut).
//
// constraints must be non-empty. Minimize rejects empty lists before the
// loop ever calls this.
func CuttingVector(objective Constraint, constraints []Constraint, x *mat.VecDense) *mat.VecDense {
	worst := constraints[0]
	worstValue := worst.Value(x)
	for _, c := range constraints[1:] {
		if v := c.Value(x); v > worstValue {
			worst = c
			worstValue = v
		}
	}

	if worstValue <= 0 {
		return objective.Subgradient(x)
	}
	return worst.Subgradient(x)
}
