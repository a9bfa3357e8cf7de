package main

import (
	"testing"

	"github.com/cwbudde/ellipsoidsolve/internal/opt"
	"github.com/cwbudde/ellipsoidsolve/internal/store"
)

func TestResumeCommand(t *testing.T) {
	tmpDir := t.TempDir()

	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Checkpoint mid-solve at a point well away from the optimum
	checkpoint := store.NewCheckpoint("resume-job", []float64{0.5, 0.5}, 0.5, 0, 50, testCheckpointConfig())
	if err := checkpointStore.SaveCheckpoint("resume-job", checkpoint); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}

	originalDataDir, originalIters := resumeDataDir, resumeIters
	defer func() { resumeDataDir, resumeIters = originalDataDir, originalIters }()
	resumeDataDir = tmpDir
	resumeIters = 500

	if err := runResume(nil, []string{"resume-job"}); err != nil {
		t.Fatalf("runResume failed: %v", err)
	}

	updated, err := checkpointStore.LoadCheckpoint("resume-job")
	if err != nil {
		t.Fatalf("Failed to reload checkpoint: %v", err)
	}

	if updated.Iteration <= checkpoint.Iteration {
		t.Errorf("Iteration = %d, expected more than %d", updated.Iteration, checkpoint.Iteration)
	}
	if updated.BestValue >= checkpoint.BestValue {
		t.Errorf("BestValue = %v, expected improvement below %v", updated.BestValue, checkpoint.BestValue)
	}
	if updated.BestValue > -0.9 {
		t.Errorf("BestValue = %v, expected near -1", updated.BestValue)
	}
}

func TestImprovesOn(t *testing.T) {
	checkpoint := store.NewCheckpoint("job", []float64{0.5, 0.5}, 0.5, 0, 50, testCheckpointConfig())

	cases := []struct {
		name   string
		result opt.Result
		want   bool
	}{
		{"better value, still feasible", opt.Result{Value: -0.8, MaxViolation: 0}, true},
		{"worse value", opt.Result{Value: 0.6, MaxViolation: 0}, false},
		{"equal value", opt.Result{Value: 0.5, MaxViolation: 0}, false},
		{"better value but infeasible", opt.Result{Value: -0.8, MaxViolation: 0.3}, false},
		{"fell back", opt.Result{Value: -0.8, MaxViolation: 0, FellBack: true}, false},
	}

	for _, tc := range cases {
		if got := improvesOn(&tc.result, checkpoint); got != tc.want {
			t.Errorf("%s: improvesOn = %v, expected %v", tc.name, got, tc.want)
		}
	}
}

func TestResumeKeepsFeasibleCheckpoint(t *testing.T) {
	tmpDir := t.TempDir()

	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// A checkpoint already at the feasible optimum cannot be improved; the
	// resumed run must leave it in place.
	checkpoint := store.NewCheckpoint("optimal-job", []float64{-1, 0}, -1, 0, 200, testCheckpointConfig())
	if err := checkpointStore.SaveCheckpoint("optimal-job", checkpoint); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}

	originalDataDir, originalIters := resumeDataDir, resumeIters
	defer func() { resumeDataDir, resumeIters = originalDataDir, originalIters }()
	resumeDataDir = tmpDir
	resumeIters = 100

	if err := runResume(nil, []string{"optimal-job"}); err != nil {
		t.Fatalf("runResume failed: %v", err)
	}

	updated, err := checkpointStore.LoadCheckpoint("optimal-job")
	if err != nil {
		t.Fatalf("Failed to reload checkpoint: %v", err)
	}
	if updated.MaxViolation > 0 {
		t.Errorf("MaxViolation = %v, the feasible checkpoint must not be replaced by an infeasible point", updated.MaxViolation)
	}
	if updated.BestValue > checkpoint.BestValue {
		t.Errorf("BestValue = %v, regressed from %v", updated.BestValue, checkpoint.BestValue)
	}
}

func TestResumeCommandMissingCheckpoint(t *testing.T) {
	originalDataDir := resumeDataDir
	defer func() { resumeDataDir = originalDataDir }()
	resumeDataDir = t.TempDir()

	if err := runResume(nil, []string{"no-such-job"}); err == nil {
		t.Error("Expected an error for a missing checkpoint")
	}
}

func TestResumeCommandRejectsMayfly(t *testing.T) {
	tmpDir := t.TempDir()

	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	config := testCheckpointConfig()
	config.Solver = store.SolverMayfly
	checkpoint := store.NewCheckpoint("mayfly-job", []float64{0.5, 0.5}, 0.5, 0, 50, config)
	if err := checkpointStore.SaveCheckpoint("mayfly-job", checkpoint); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}

	originalDataDir := resumeDataDir
	defer func() { resumeDataDir = originalDataDir }()
	resumeDataDir = tmpDir

	if err := runResume(nil, []string{"mayfly-job"}); err == nil {
		t.Error("Expected an error for a mayfly checkpoint")
	}
}
