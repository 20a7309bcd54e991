package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // Handles /api/jobs/{id}

	// API routes - Queues
	mux.HandleFunc("/api/queues", s.app.QueueHandler.ListQueuesHandler)
	mux.HandleFunc("/api/queues/", s.handleQueueRoutes) // Handles /api/queues/{name} and subpaths

	// API routes - Providers
	mux.HandleFunc("/api/providers", s.app.ProviderHandler.ListProvidersHandler)
	mux.HandleFunc("/api/providers/", s.handleProviderRoutes) // Handles /api/providers/{name}/check
	mux.HandleFunc("/api/usage", s.app.ProviderHandler.GetUsageHandler)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.StatusHandler.NotFoundHandler)

	return mux
}

// handleJobsRoute dispatches /api/jobs by method
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.JobHandler.EnqueueHandler(w, r)
	case http.MethodGet:
		s.app.JobHandler.ListJobsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobRoutes routes /api/jobs/{id} requests by method
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.JobHandler.GetJobHandler(w, r)
	case http.MethodDelete:
		s.app.JobHandler.CancelJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleQueueRoutes routes /api/queues/{name} and its action subpaths
func (s *Server) handleQueueRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/queues/")
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.QueueHandler.GetQueueHandler(w, r, parts[0])

	case len(parts) == 2:
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		queueName := parts[0]
		switch parts[1] {
		case "pause":
			s.app.QueueHandler.PauseHandler(w, r, queueName)
		case "resume":
			s.app.QueueHandler.ResumeHandler(w, r, queueName)
		case "retry-failed":
			s.app.QueueHandler.RetryFailedHandler(w, r, queueName)
		case "clean":
			s.app.QueueHandler.CleanHandler(w, r, queueName)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}

	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleProviderRoutes routes /api/providers/{name}/check
func (s *Server) handleProviderRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/providers/")
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")

	if len(parts) == 2 && parts[1] == "check" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.ProviderHandler.CheckProviderHandler(w, r, parts[0])
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}
