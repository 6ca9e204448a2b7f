package rest

import (
	"net/http"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler serves the HTTP status and control API.
type Handler struct {
	orch   ports.JobOrchestrator
	logger ports.Logger
}

func NewHandler(orch ports.JobOrchestrator, logger ports.Logger) *Handler {
	return &Handler{orch: orch, logger: logger.With("component", "http_api")}
}

// Router returns the chi router for the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.health)
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.listJobs)
		r.Post("/", h.submitJob)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getJob)
			r.Delete("/", h.cancelJob)
			r.Get("/wait", h.waitJob)
		})
	})
	r.Get("/report", h.report)
	r.Get("/resources", h.resources)
	r.Post("/prune", h.prune)
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"elapsed", time.Since(start),
		)
	})
}
