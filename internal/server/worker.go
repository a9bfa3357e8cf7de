package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/ellipsoidsolve/internal/opt"
	"github.com/cwbudde/ellipsoidsolve/internal/problem"
	"github.com/cwbudde/ellipsoidsolve/internal/solve"
	"github.com/cwbudde/ellipsoidsolve/internal/store"
)

// runJob executes a solve job in the background.
// If checkpointStore is not nil, a trace is written and, when the job has
// checkpointInterval > 0, periodic checkpoints are saved.
func runJob(ctx context.Context, jm *JobManager, checkpointStore *store.FSStore, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "solver", solverName(job.Config), "dimension", job.Config.Problem.Dimension)

	prob, err := job.Config.Problem.Build()
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to build problem: %w", err))
		return err
	}

	// Check for cancellation before starting the solve
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	var trace *store.TraceWriter
	if checkpointStore != nil {
		trace, err = store.NewTraceWriter(checkpointStore.BaseDir(), jobID, false)
		if err != nil {
			slog.Warn("Failed to create trace writer", "job_id", jobID, "error", err)
		} else {
			defer trace.Close()
		}
	}

	// Start progress monitoring goroutine
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	// Start checkpoint monitoring goroutine if enabled
	checkpointDone := make(chan struct{})
	if checkpointStore != nil && job.Config.CheckpointInterval > 0 {
		go monitorCheckpoints(ctx, jm, checkpointStore, jobID, checkpointDone)
	} else {
		close(checkpointDone) // No checkpointing, close immediately
	}

	start := time.Now()
	result, err := runSolver(jm, prob, trace, job.Config, jobID)

	close(progressDone)
	if checkpointStore != nil && job.Config.CheckpointInterval > 0 {
		close(checkpointDone)
	}

	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	elapsed := time.Since(start)

	// Check for cancellation after the solve
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestPoint = result.Point
		j.BestValue = result.Value
		j.MaxViolation = result.MaxViolation
		j.Iterations = result.Iterations
		j.FellBack = result.FellBack
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"iterations", result.Iterations,
		"best_value", result.Value,
		"max_violation", result.MaxViolation,
		"fell_back", result.FellBack,
	)

	// Persist the final state so the job can be inspected or resumed later
	if checkpointStore != nil {
		if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
			slog.Warn("Failed to save final checkpoint", "job_id", jobID, "error", err)
		}
	}
	if trace != nil {
		if err := trace.Flush(); err != nil {
			slog.Warn("Failed to flush trace", "job_id", jobID, "error", err)
		}
	}

	// Broadcast final completion event
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:        jobID,
		State:        StateCompleted,
		Iteration:    result.Iterations,
		BestValue:    result.Value,
		MaxViolation: result.MaxViolation,
		Timestamp:    time.Now(),
	})

	return nil
}

// runSolver dispatches to the configured backend and runs the solve.
func runSolver(jm *JobManager, prob *problem.Problem, trace *store.TraceWriter, config JobConfig, jobID string) (*opt.Result, error) {
	switch solverName(config) {
	case store.SolverEllipsoid:
		solver := opt.NewEllipsoid(config.BallRadius, config.Accuracy, config.MaxIterations)
		solver.OnIteration = func(p solve.Progress) {
			value := prob.ObjectiveValue(p.Point)
			violation := prob.MaxViolation(p.Point)

			jm.UpdateJob(jobID, func(j *Job) {
				j.Iterations = p.Iteration
				j.BestPoint = p.Point
				j.BestValue = value
				j.MaxViolation = violation
				j.SubgradientNorm = p.SubgradientNorm
			})

			if trace != nil {
				entry := store.TraceEntry{
					Iteration:       p.Iteration,
					SubgradientNorm: p.SubgradientNorm,
					StepRadius:      p.StepRadius,
					Timestamp:       time.Now(),
				}
				if err := trace.Write(entry); err != nil {
					slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
				}
			}
		}
		return solver.Solve(prob, config.InitialPoint)

	case store.SolverMayfly:
		solver := opt.NewMayfly(config.BallRadius, config.MaxIterations, config.PopSize, config.Seed)
		return solver.Solve(prob, config.InitialPoint)

	default:
		return nil, fmt.Errorf("unknown solver: %s", config.Solver)
	}
}

// solverName resolves the backend name, defaulting to the ellipsoid method.
func solverName(config JobConfig) string {
	if config.Solver == "" {
		return store.SolverEllipsoid
	}
	return config.Solver
}

// monitorProgress periodically broadcasts progress events during the solve
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}

			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:           jobID,
				State:           job.State,
				Iteration:       job.Iterations,
				BestValue:       job.BestValue,
				MaxViolation:    job.MaxViolation,
				SubgradientNorm: job.SubgradientNorm,
				Timestamp:       time.Now(),
			})
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}

// monitorCheckpoints periodically saves checkpoints during the solve
func monitorCheckpoints(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string, done chan struct{}) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}

	interval := time.Duration(job.Config.CheckpointInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
				slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
			}
		}
	}
}

// saveCheckpoint saves a checkpoint for the given job
func saveCheckpoint(jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Skip if the solve has not produced a point yet
	if len(job.BestPoint) == 0 {
		slog.Debug("Skipping checkpoint, no point yet", "job_id", jobID)
		return nil
	}

	checkpoint := store.NewCheckpoint(
		jobID,
		job.BestPoint,
		job.BestValue,
		job.MaxViolation,
		job.Iterations,
		job.Config,
	)

	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Debug("Checkpoint saved",
		"job_id", jobID,
		"iteration", job.Iterations,
		"best_value", job.BestValue,
	)
	return nil
}
