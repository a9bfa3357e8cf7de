package problem

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/ellipsoidsolve/internal/solve"
)

// ObjectiveSpec describes the objective in a serializable form.
// Supported types: "linear" (requires coeffs), "l1".
type ObjectiveSpec struct {
	Type   string    `json:"type"`
	Coeffs []float64 `json:"coeffs,omitempty"`
}

// ConstraintSpec describes one inequality constraint in a serializable form.
// Supported types:
//   - "halfspace": normal.x - offset <= 0
//   - "ball":      |x - center|^2 - radius^2 <= 0
//   - "linear":    coeffs.x <= 0
//   - "quadratic": sum coeffs_i*x_i^2 - bound <= 0 (coeffs must be >= 0)
type ConstraintSpec struct {
	Type   string    `json:"type"`
	Normal []float64 `json:"normal,omitempty"`
	Offset float64   `json:"offset,omitempty"`
	Center []float64 `json:"center,omitempty"`
	Radius float64   `json:"radius,omitempty"`
	Coeffs []float64 `json:"coeffs,omitempty"`
	Bound  float64   `json:"bound,omitempty"`
}

// Spec is the JSON description of a convex program. The solver core never
// sees this type; embedding layers (CLI, server) build a Problem from it.
type Spec struct {
	Dimension   int              `json:"dimension"`
	Objective   ObjectiveSpec    `json:"objective"`
	Constraints []ConstraintSpec `json:"constraints"`
}

// Problem is a built convex program ready for a solver backend.
type Problem struct {
	Dimension   int
	Objective   solve.Constraint
	Constraints []solve.Constraint
}

// LoadSpec reads and decodes a problem spec from a JSON file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}

	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode problem file: %w", err)
	}
	return &spec, nil
}

// Build validates the spec and constructs the Problem.
func (s *Spec) Build() (*Problem, error) {
	if s.Dimension < 2 {
		return nil, fmt.Errorf("dimension must be at least 2, got %d", s.Dimension)
	}
	if len(s.Constraints) == 0 {
		return nil, fmt.Errorf("at least one constraint is required")
	}

	objective, err := s.buildObjective()
	if err != nil {
		return nil, err
	}

	constraints := make([]solve.Constraint, len(s.Constraints))
	for i, cs := range s.Constraints {
		c, err := s.buildConstraint(cs)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		constraints[i] = c
	}

	return &Problem{
		Dimension:   s.Dimension,
		Objective:   objective,
		Constraints: constraints,
	}, nil
}

func (s *Spec) buildObjective() (solve.Constraint, error) {
	switch s.Objective.Type {
	case "linear":
		if len(s.Objective.Coeffs) != s.Dimension {
			return nil, fmt.Errorf("objective: expected %d coefficients, got %d", s.Dimension, len(s.Objective.Coeffs))
		}
		return Linear{Coeffs: s.Objective.Coeffs}, nil
	case "l1":
		return L1{Dim: s.Dimension}, nil
	default:
		return nil, fmt.Errorf("objective: unknown type %q", s.Objective.Type)
	}
}

func (s *Spec) buildConstraint(cs ConstraintSpec) (solve.Constraint, error) {
	switch cs.Type {
	case "halfspace":
		if len(cs.Normal) != s.Dimension {
			return nil, fmt.Errorf("expected normal of length %d, got %d", s.Dimension, len(cs.Normal))
		}
		return Halfspace{Normal: cs.Normal, Offset: cs.Offset}, nil
	case "ball":
		if len(cs.Center) != s.Dimension {
			return nil, fmt.Errorf("expected center of length %d, got %d", s.Dimension, len(cs.Center))
		}
		if cs.Radius <= 0 {
			return nil, fmt.Errorf("radius must be positive, got %v", cs.Radius)
		}
		return Ball{Center: cs.Center, Radius: cs.Radius}, nil
	case "linear":
		if len(cs.Coeffs) != s.Dimension {
			return nil, fmt.Errorf("expected %d coefficients, got %d", s.Dimension, len(cs.Coeffs))
		}
		return Linear{Coeffs: cs.Coeffs}, nil
	case "quadratic":
		if len(cs.Coeffs) != s.Dimension {
			return nil, fmt.Errorf("expected %d coefficients, got %d", s.Dimension, len(cs.Coeffs))
		}
		for i, c := range cs.Coeffs {
			if c < 0 {
				return nil, fmt.Errorf("coefficient %d is negative; quadratic constraints must be convex", i)
			}
		}
		return QuadraticDiag{Coeffs: cs.Coeffs, Bound: cs.Bound}, nil
	default:
		return nil, fmt.Errorf("unknown type %q", cs.Type)
	}
}

// Residuals evaluates every constraint at the point. Entries <= 0 are
// satisfied.
func (p *Problem) Residuals(point []float64) []float64 {
	x := mat.NewVecDense(len(point), point)
	residuals := make([]float64, len(p.Constraints))
	for i, c := range p.Constraints {
		residuals[i] = c.Value(x)
	}
	return residuals
}

// MaxViolation is the largest constraint value at the point, clamped at zero
// for feasible points.
func (p *Problem) MaxViolation(point []float64) float64 {
	worst := 0.0
	for _, r := range p.Residuals(point) {
		if r > worst {
			worst = r
		}
	}
	return worst
}

// ObjectiveValue evaluates the objective's function value at the point.
func (p *Problem) ObjectiveValue(point []float64) float64 {
	return p.Objective.Value(mat.NewVecDense(len(point), point))
}
