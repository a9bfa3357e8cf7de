package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/ellipsoidsolve/internal/problem"
)

// SolverEllipsoid and SolverMayfly name the available backends in a JobConfig.
const (
	SolverEllipsoid = "ellipsoid"
	SolverMayfly    = "mayfly"
)

// JobConfig holds configuration for a solve job (checkpoint copy).
// Kept here rather than in the server package to avoid import cycles.
type JobConfig struct {
	Problem            problem.Spec `json:"problem"`
	InitialPoint       []float64    `json:"initialPoint"`
	BallRadius         float64      `json:"ballRadius"`
	Accuracy           float64      `json:"accuracy"`
	MaxIterations      int          `json:"maxIterations"`
	Solver             string       `json:"solver,omitempty"` // ellipsoid (default) or mayfly
	Seed               int64        `json:"seed,omitempty"`
	PopSize            int          `json:"popSize,omitempty"`
	CheckpointInterval int          `json:"checkpointInterval,omitempty"` // Checkpoint every N seconds (0 = disabled)
}

// Checkpoint represents a saved solve state that can be resumed later.
//
// The checkpoint stores the best point found so far, not the solver's
// internal state: the ellipsoid shape transform and step radius are cheap to
// rebuild but meaningless to restore in isolation, since the shrink schedule
// is a function of the iteration count and the start point. Resume therefore
// restarts the solver from the checkpointed point with a fresh transform.
// That is not a perfect continuation — convergence after a resume may differ
// slightly from an uninterrupted run — but the objective value never gets
// worse because the restart begins at the best known point.
type Checkpoint struct {
	// JobID is the unique identifier for this solve job
	JobID string `json:"jobId"`

	// BestPoint is the best point found so far
	BestPoint []float64 `json:"bestPoint"`

	// BestValue is the objective's function value at BestPoint
	BestValue float64 `json:"bestValue"`

	// MaxViolation is the largest constraint value at BestPoint
	MaxViolation float64 `json:"maxViolation"`

	// Iteration is the iteration count when this checkpoint was created
	Iteration int `json:"iteration"`

	// Timestamp records when this checkpoint was created
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration, needed for validation during
	// resume so a resumed job cannot run against a different problem.
	Config JobConfig `json:"config"`
}

// CheckpointInfo contains metadata about a checkpoint without the point data.
// Used for listing checkpoints without loading full parameter arrays.
type CheckpointInfo struct {
	JobID        string    `json:"jobId"`
	BestValue    float64   `json:"bestValue"`
	MaxViolation float64   `json:"maxViolation"`
	Iteration    int       `json:"iteration"`
	Timestamp    time.Time `json:"timestamp"`
	Solver       string    `json:"solver"`
	Dimension    int       `json:"dimension"`
}

// NewCheckpoint creates a checkpoint from runtime job state.
func NewCheckpoint(jobID string, bestPoint []float64, bestValue, maxViolation float64, iteration int, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:        jobID,
		BestPoint:    bestPoint,
		BestValue:    bestValue,
		MaxViolation: maxViolation,
		Iteration:    iteration,
		Timestamp:    time.Now(),
		Config:       config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	solver := c.Config.Solver
	if solver == "" {
		solver = SolverEllipsoid
	}
	return CheckpointInfo{
		JobID:        c.JobID,
		BestValue:    c.BestValue,
		MaxViolation: c.MaxViolation,
		Iteration:    c.Iteration,
		Timestamp:    c.Timestamp,
		Solver:       solver,
		Dimension:    c.Config.Problem.Dimension,
	}
}

// Validate checks if the checkpoint has valid data.
// Returns an error if any required field is missing or invalid.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(c.BestPoint) == 0 {
		return &ValidationError{Field: "BestPoint", Reason: "cannot be empty"}
	}
	if c.Config.Problem.Dimension < 2 {
		return &ValidationError{Field: "Config.Problem.Dimension", Reason: "must be at least 2"}
	}
	if len(c.BestPoint) != c.Config.Problem.Dimension {
		return &ValidationError{
			Field:  "BestPoint",
			Reason: fmt.Sprintf("length mismatch: got %d entries for dimension %d", len(c.BestPoint), c.Config.Problem.Dimension),
		}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.BallRadius <= 0 {
		return &ValidationError{Field: "Config.BallRadius", Reason: "must be positive"}
	}
	if c.Config.Accuracy <= 0 {
		return &ValidationError{Field: "Config.Accuracy", Reason: "must be positive"}
	}
	if c.Config.MaxIterations <= 0 {
		return &ValidationError{Field: "Config.MaxIterations", Reason: "must be positive"}
	}
	if len(c.Config.InitialPoint) != c.Config.Problem.Dimension {
		return &ValidationError{Field: "Config.InitialPoint", Reason: "length must match the problem dimension"}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given config.
// Returns an error if the configs are incompatible.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.Problem.Dimension != config.Problem.Dimension {
		return &CompatibilityError{
			Field:    "Problem.Dimension",
			Expected: fmt.Sprintf("%d", c.Config.Problem.Dimension),
			Actual:   fmt.Sprintf("%d", config.Problem.Dimension),
		}
	}
	if c.Config.Solver != config.Solver {
		return &CompatibilityError{
			Field:    "Solver",
			Expected: c.Config.Solver,
			Actual:   config.Solver,
		}
	}
	if c.Config.BallRadius != config.BallRadius {
		return &CompatibilityError{
			Field:    "BallRadius",
			Expected: fmt.Sprintf("%v", c.Config.BallRadius),
			Actual:   fmt.Sprintf("%v", config.BallRadius),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
