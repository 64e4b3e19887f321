// Package httpapi exposes the core's three HTTP surfaces: prompt ingestion,
// slide-deck generation, and status read/patch/live-subscribe.
package httpapi

import (
	"net/http"

	"lecturegen/internal/job"
	"lecturegen/internal/pipeline"
	"lecturegen/internal/postproc"
	"lecturegen/internal/status"
	"lecturegen/internal/taskpool"
)

// Server wires the status store, job manager, post-processor, and prompt
// pipeline to a ServeMux. One Server instance backs every request; all
// per-prompt state lives in Status and Jobs, not in the Server itself.
type Server struct {
	Status   *status.Store
	Jobs     *job.Manager
	PostProc postproc.Processor
	Pipeline *pipeline.Pipeline
	Pool     *taskpool.Pool

	mux *http.ServeMux
}

// NewServer builds a Server and registers its routes.
func NewServer(st *status.Store, jobs *job.Manager, pp postproc.Processor, pl *pipeline.Pipeline, pool *taskpool.Pool) *Server {
	s := &Server{Status: st, Jobs: jobs, PostProc: pp, Pipeline: pl, Pool: pool, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	// Prompt ingestion.
	s.mux.HandleFunc("POST /core/prompt", s.handlePostPrompt)

	// Slide-deck generation (phases 4-6 in isolation).
	s.mux.HandleFunc("POST /v1/slides/generate", s.handlePostSlidesGenerate)
	s.mux.HandleFunc("GET /v1/slides/{promptId}/status", s.handleGetSlidesStatus)

	// Status read/patch/live.
	s.mux.HandleFunc("GET /status/{promptId}", s.handleGetStatus)
	s.mux.HandleFunc("PATCH /status/{promptId}/update", s.handlePatchStatus)
	s.mux.HandleFunc("GET /status/{promptId}/live", s.handleStatusLive)

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
