package server

import "net/http"

// registerRoutes sets up all REST API routes on the mux using Go 1.22+
// method+wildcard route patterns.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /api/providers", s.handleListProviders)

	mux.HandleFunc("POST /parse/jobs", s.handleSubmitJob)
	mux.HandleFunc("GET /parse/jobs", s.handleListJobsByOrg)
	mux.HandleFunc("GET /parse/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /parse/jobs/{id}/review", s.handleReviewJob)
}
