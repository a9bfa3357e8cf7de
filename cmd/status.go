package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if config, ok := job["config"].(map[string]interface{}); ok {
			if problem, ok := config["problem"].(map[string]interface{}); ok {
				fmt.Printf("  Dimension: %v\n", problem["dimension"])
			}
			fmt.Printf("  Solver: %v\n", config["solver"])
		}
		if job["bestValue"] != nil {
			fmt.Printf("  Best value: %.6g\n", job["bestValue"])
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	if config, ok := status["config"].(map[string]interface{}); ok {
		fmt.Println("Configuration:")
		if problem, ok := config["problem"].(map[string]interface{}); ok {
			fmt.Printf("  Dimension: %v\n", problem["dimension"])
			if constraints, ok := problem["constraints"].([]interface{}); ok {
				fmt.Printf("  Constraints: %d\n", len(constraints))
			}
		}
		fmt.Printf("  Solver: %v\n", config["solver"])
		fmt.Printf("  Ball radius: %v\n", config["ballRadius"])
		fmt.Printf("  Max iterations: %v\n", config["maxIterations"])
		fmt.Println()
	}

	fmt.Println("Progress:")
	fmt.Printf("  Iterations: %v\n", status["iterations"])
	if status["bestValue"] != nil {
		fmt.Printf("  Best value: %.6g\n", status["bestValue"])
	}
	if status["maxViolation"] != nil {
		fmt.Printf("  Max violation: %.3g\n", status["maxViolation"])
	}
	if status["subgradientNorm"] != nil {
		fmt.Printf("  Subgradient norm: %.3g\n", status["subgradientNorm"])
	}
	if fellBack, ok := status["fellBack"].(bool); ok && fellBack {
		fmt.Println("  Fell back to the initial point (left the guaranteed ball)")
	}

	if status["elapsed"] != nil {
		elapsed := time.Duration(status["elapsed"].(float64) * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if status["ips"] != nil && status["ips"].(float64) > 0 {
		fmt.Printf("  Throughput: %.0f iterations/sec\n", status["ips"])
	}

	if status["error"] != nil && status["error"].(string) != "" {
		fmt.Printf("\nError: %s\n", status["error"])
	}

	return nil
}
