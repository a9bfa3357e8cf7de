package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ellipsoidsolve/internal/opt"
	"github.com/cwbudde/ellipsoidsolve/internal/problem"
	"github.com/cwbudde/ellipsoidsolve/internal/solve"
	"github.com/cwbudde/ellipsoidsolve/internal/store"
)

var (
	problemPath string
	initialFlag string
	ballRadius  float64
	accuracy    float64
	iters       int
	outPath     string
	tracePath   string
	baseline    bool
	popSize     int
	seed        int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single-shot solve",
	Long: `Solves the convex program described by a JSON problem file with the
ellipsoid method and optionally compares against the Mayfly penalty baseline.`,
	RunE: runSolve,
}

func init() {
	runCmd.Flags().StringVar(&problemPath, "problem", "", "Problem spec JSON path (required)")
	runCmd.Flags().StringVar(&initialFlag, "x0", "", "Initial point as comma-separated values (default: origin)")
	runCmd.Flags().Float64Var(&ballRadius, "radius", 10, "Radius of the ball around x0 guaranteed to contain the optimum")
	runCmd.Flags().Float64Var(&accuracy, "accuracy", 1e-6, "Stopping tolerance on the subgradient norm")
	runCmd.Flags().IntVar(&iters, "iters", 1000, "Max iterations")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write the solution as JSON to this path")
	runCmd.Flags().StringVar(&tracePath, "trace", "", "Write per-iteration trace entries as JSONL to this path")
	runCmd.Flags().BoolVar(&baseline, "baseline", false, "Also run the Mayfly penalty baseline and compare")
	runCmd.Flags().IntVar(&popSize, "pop", 30, "Population size for the baseline")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for the baseline")

	runCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(runCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	spec, err := problem.LoadSpec(problemPath)
	if err != nil {
		return err
	}

	prob, err := spec.Build()
	if err != nil {
		return fmt.Errorf("invalid problem: %w", err)
	}

	x0, err := parsePoint(initialFlag, prob.Dimension)
	if err != nil {
		return err
	}

	slog.Info("Starting solve", "dimension", prob.Dimension, "constraints", len(prob.Constraints), "radius", ballRadius, "iters", iters)

	var traceFile *os.File
	var traceEnc *json.Encoder
	if tracePath != "" {
		traceFile, err = os.Create(tracePath)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer traceFile.Close()
		traceEnc = json.NewEncoder(traceFile)
	}

	solver := opt.NewEllipsoid(ballRadius, accuracy, iters)
	solver.OnIteration = func(p solve.Progress) {
		if p.Iteration%100 == 0 {
			slog.Debug("Iteration", "iteration", p.Iteration, "subgradient_norm", p.SubgradientNorm, "step_radius", p.StepRadius)
		}
		if traceEnc != nil {
			traceEnc.Encode(store.TraceEntry{
				Iteration:       p.Iteration,
				SubgradientNorm: p.SubgradientNorm,
				StepRadius:      p.StepRadius,
				Timestamp:       time.Now(),
				Point:           p.Point,
			})
		}
	}

	start := time.Now()
	result, err := solver.Solve(prob, x0)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	slog.Info("Solve complete",
		"elapsed", elapsed,
		"iterations", result.Iterations,
		"value", result.Value,
		"max_violation", result.MaxViolation,
		"fell_back", result.FellBack,
	)

	if result.FellBack {
		fmt.Println("Warning: the solve left the guaranteed ball; returning the initial point.")
	}
	fmt.Printf("Point: %v\n", formatPoint(result.Point))
	fmt.Printf("Objective: %.6g  Max violation: %.3g  (%d iterations, %s)\n",
		result.Value, result.MaxViolation, result.Iterations, elapsed.Round(time.Millisecond))

	if baseline {
		baselineSolver := opt.NewMayfly(ballRadius, iters, popSize, seed)

		baselineStart := time.Now()
		baselineResult, err := baselineSolver.Solve(prob, x0)
		if err != nil {
			return fmt.Errorf("baseline failed: %w", err)
		}

		slog.Info("Baseline complete",
			"elapsed", time.Since(baselineStart),
			"value", baselineResult.Value,
			"max_violation", baselineResult.MaxViolation,
		)
		fmt.Printf("Baseline (mayfly): objective %.6g, max violation %.3g, gap to ellipsoid %.3g\n",
			baselineResult.Value, baselineResult.MaxViolation, baselineResult.Value-result.Value)
	}

	if outPath != "" {
		if err := writeSolution(outPath, prob, result); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", outPath)
	}

	return nil
}

// parsePoint parses a comma-separated point, defaulting to the origin.
func parsePoint(flag string, dim int) ([]float64, error) {
	if flag == "" {
		return make([]float64, dim), nil
	}

	fields := strings.Split(flag, ",")
	if len(fields) != dim {
		return nil, fmt.Errorf("x0 has %d entries, problem dimension is %d", len(fields), dim)
	}

	point := make([]float64, dim)
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x0 entry %q: %w", field, err)
		}
		point[i] = v
	}
	return point, nil
}

func formatPoint(point []float64) string {
	fields := make([]string, len(point))
	for i, v := range point {
		fields[i] = strconv.FormatFloat(v, 'g', 8, 64)
	}
	return "(" + strings.Join(fields, ", ") + ")"
}

// writeSolution serializes the result with per-constraint residuals.
func writeSolution(path string, prob *problem.Problem, result *opt.Result) error {
	solution := map[string]interface{}{
		"point":        result.Point,
		"value":        result.Value,
		"residuals":    prob.Residuals(result.Point),
		"maxViolation": result.MaxViolation,
		"iterations":   result.Iterations,
		"fellBack":     result.FellBack,
	}

	data, err := json.MarshalIndent(solution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize solution: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write solution: %w", err)
	}
	return nil
}
