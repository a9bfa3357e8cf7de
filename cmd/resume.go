package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ellipsoidsolve/internal/opt"
	"github.com/cwbudde/ellipsoidsolve/internal/solve"
	"github.com/cwbudde/ellipsoidsolve/internal/store"
)

var (
	resumeDataDir string
	resumeIters   int
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a solve from its checkpoint",
	Long: `Loads the checkpoint for a job and continues solving from the best
point found so far. The solver restarts at the checkpointed point with a
fresh shape transform, so the objective value can only improve.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for checkpoint storage")
	resumeCmd.Flags().IntVar(&resumeIters, "iters", 0, "Max iterations for the resumed run (default: the checkpointed limit)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	checkpointStore, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	checkpoint, err := checkpointStore.LoadCheckpoint(jobID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := checkpoint.Validate(); err != nil {
		return fmt.Errorf("checkpoint is not resumable: %w", err)
	}
	if checkpoint.Config.Solver == store.SolverMayfly {
		return fmt.Errorf("resume supports the ellipsoid solver only (checkpoint uses %s)", checkpoint.Config.Solver)
	}

	prob, err := checkpoint.Config.Problem.Build()
	if err != nil {
		return fmt.Errorf("failed to rebuild problem from checkpoint: %w", err)
	}

	maxIterations := checkpoint.Config.MaxIterations
	if resumeIters > 0 {
		maxIterations = resumeIters
	}

	slog.Info("Resuming solve",
		"job_id", jobID,
		"from_iteration", checkpoint.Iteration,
		"best_value", checkpoint.BestValue,
		"max_iterations", maxIterations,
	)

	// Trace entries from the resumed run are appended with the iteration
	// count continuing where the checkpoint left off.
	traceWriter, err := store.NewTraceWriter(resumeDataDir, jobID, true)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer traceWriter.Close()

	baseIteration := checkpoint.Iteration
	solver := opt.NewEllipsoid(checkpoint.Config.BallRadius, checkpoint.Config.Accuracy, maxIterations)
	solver.OnIteration = func(p solve.Progress) {
		traceWriter.Write(store.TraceEntry{
			Iteration:       baseIteration + p.Iteration,
			SubgradientNorm: p.SubgradientNorm,
			StepRadius:      p.StepRadius,
			Timestamp:       time.Now(),
			Point:           p.Point,
		})
	}

	start := time.Now()
	result, err := solver.Solve(prob, checkpoint.BestPoint)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	totalIterations := baseIteration + result.Iterations

	// Keep the checkpointed point unless the resumed run genuinely improved
	// on it.
	bestPoint := checkpoint.BestPoint
	bestValue := checkpoint.BestValue
	maxViolation := checkpoint.MaxViolation
	if improvesOn(result, checkpoint) {
		bestPoint = result.Point
		bestValue = result.Value
		maxViolation = result.MaxViolation
	}

	updated := store.NewCheckpoint(jobID, bestPoint, bestValue, maxViolation, totalIterations, checkpoint.Config)
	if err := checkpointStore.SaveCheckpoint(jobID, updated); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Resume complete",
		"elapsed", elapsed,
		"iterations", result.Iterations,
		"total_iterations", totalIterations,
		"value", bestValue,
		"max_violation", maxViolation,
	)

	fmt.Printf("Point: %v\n", formatPoint(bestPoint))
	fmt.Printf("Objective: %.6g  Max violation: %.3g  (%d new iterations, %d total, %s)\n",
		bestValue, maxViolation, result.Iterations, totalIterations, elapsed.Round(time.Millisecond))

	return nil
}

// improvesOn reports whether the resumed result should replace the
// checkpointed best: a strictly better objective that is no worse on
// feasibility. A lower value bought with a larger violation is not an
// improvement.
func improvesOn(result *opt.Result, checkpoint *store.Checkpoint) bool {
	if result.FellBack {
		return false
	}
	return result.Value < checkpoint.BestValue && result.MaxViolation <= checkpoint.MaxViolation
}
