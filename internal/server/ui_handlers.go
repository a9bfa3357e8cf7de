package server

import (
	"html/template"
	"net/http"
	"sort"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<title>ellipsoidsolve</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
.completed { color: #060; }
.failed { color: #900; }
.running { color: #06c; }
</style>
</head>
<body>
<h1>Solve Jobs</h1>
{{if .}}
<table>
<tr><th>ID</th><th>State</th><th>Solver</th><th>Dim</th><th>Iterations</th><th>Best Value</th><th>Violation</th></tr>
{{range .}}
<tr>
<td><a href="/api/v1/jobs/{{.ID}}/status">{{.ID}}</a></td>
<td class="{{.State}}">{{.State}}</td>
<td>{{if .Config.Solver}}{{.Config.Solver}}{{else}}ellipsoid{{end}}</td>
<td>{{.Config.Problem.Dimension}}</td>
<td>{{.Iterations}}</td>
<td>{{printf "%.6g" .BestValue}}</td>
<td>{{printf "%.3g" .MaxViolation}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No jobs yet. POST a job config to /api/v1/jobs to start one.</p>
{{end}}
</body>
</html>
`))

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	jobs := s.jobManager.ListJobs()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, jobs); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}
