package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/ellipsoidsolve/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager      *JobManager
	checkpointStore *store.FSStore
	addr            string
	server          *http.Server
}

// NewServer creates a new HTTP server. checkpointStore may be nil, in which
// case jobs run without traces or checkpoints.
func NewServer(addr string, checkpointStore *store.FSStore) *Server {
	return &Server{
		jobManager:      NewJobManager(),
		checkpointStore: checkpointStore,
		addr:            addr,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Register UI routes
	mux.HandleFunc("/", s.handleIndex)

	// Register API routes
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	// Wrap with middleware
	handler := s.loggingMiddleware(s.corsMiddleware(mux))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	// Parse job ID from path
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	// Route based on subpath
	switch {
	case len(parts) == 1 || parts[1] == "status":
		s.handleGetJobStatus(w, r, jobID)
	case parts[1] == "solution":
		s.handleGetSolution(w, r, jobID)
	case parts[1] == "stream":
		s.handleJobStream(w, r, jobID)
	case parts[1] == "trace":
		s.handleGetTrace(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var config JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	// Validate the problem spec before accepting the job
	if _, err := config.Problem.Build(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid problem: %v", err), http.StatusBadRequest)
		return
	}
	if len(config.InitialPoint) != config.Problem.Dimension {
		http.Error(w, fmt.Sprintf("initialPoint must have %d entries", config.Problem.Dimension), http.StatusBadRequest)
		return
	}
	if config.BallRadius <= 0 {
		http.Error(w, "ballRadius must be positive", http.StatusBadRequest)
		return
	}
	if config.Solver != "" && config.Solver != store.SolverEllipsoid && config.Solver != store.SolverMayfly {
		http.Error(w, fmt.Sprintf("unknown solver: %s", config.Solver), http.StatusBadRequest)
		return
	}

	// Apply defaults
	if config.Accuracy <= 0 {
		config.Accuracy = 1e-6
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = 1000
	}
	if config.PopSize <= 0 {
		config.PopSize = 30
	}
	if config.Seed == 0 {
		config.Seed = 42
	}

	// Create job
	job := s.jobManager.CreateJob(config)

	// Start worker in background
	go runJob(context.Background(), s.jobManager, s.checkpointStore, job.ID)

	// Return job
	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	// Compute elapsed time and iteration throughput
	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	ips := float64(0)
	if elapsed.Seconds() > 0 && job.Iterations > 0 {
		ips = float64(job.Iterations) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":              job.ID,
		"state":           job.State,
		"config":          job.Config,
		"bestValue":       job.BestValue,
		"maxViolation":    job.MaxViolation,
		"subgradientNorm": job.SubgradientNorm,
		"iterations":      job.Iterations,
		"fellBack":        job.FellBack,
		"elapsed":         elapsed.Seconds(),
		"ips":             ips,
		"startTime":       job.StartTime,
		"endTime":         job.EndTime,
		"error":           job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetSolution handles GET /api/v1/jobs/:id/solution
func (s *Server) handleGetSolution(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	if len(job.BestPoint) == 0 {
		http.Error(w, "No solution yet", http.StatusNotFound)
		return
	}

	// Rebuild the problem to evaluate per-constraint residuals
	prob, err := job.Config.Problem.Build()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to build problem: %v", err), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"jobId":        job.ID,
		"point":        job.BestPoint,
		"value":        prob.ObjectiveValue(job.BestPoint),
		"residuals":    prob.Residuals(job.BestPoint),
		"maxViolation": prob.MaxViolation(job.BestPoint),
		"iterations":   job.Iterations,
		"fellBack":     job.FellBack,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetTrace handles GET /api/v1/jobs/:id/trace
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.checkpointStore == nil {
		http.Error(w, "Tracing disabled", http.StatusNotFound)
		return
	}
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	reader, err := store.NewTraceReader(s.checkpointStore.BaseDir(), jobID)
	if err != nil {
		http.Error(w, "Trace not found", http.StatusNotFound)
		return
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read trace: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
