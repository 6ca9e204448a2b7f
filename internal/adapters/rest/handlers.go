package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/domain/resource"
	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type submitRequest struct {
	Command string         `json:"command"`
	Args    []string       `json:"args"`
	Flags   map[string]any `json:"flags"`
}

type submitResponse struct {
	JobID      string `json:"job_id,omitempty"`
	Background bool   `json:"background"`
}

type resourcesResponse struct {
	Usage resource.Usage      `json:"usage"`
	Host  *resource.HostStats `json:"host,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.GetJobStatus())
}

// submitJob applies the decision policy; foreground decisions are answered
// without spawning anything.
func (h *Handler) submitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, errors.New("command is required"))
		return
	}

	if !h.orch.ShouldRunInBackground(req.Command, req.Args, req.Flags) {
		writeJSON(w, http.StatusOK, submitResponse{Background: false})
		return
	}
	id, err := h.orch.ExecuteInBackground(req.Command, req.Args, req.Flags)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+id)
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: id, Background: true})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.orch.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.orch.GetJob(id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": h.orch.CancelJob(id)})
}

func (h *Handler) waitJob(w http.ResponseWriter, r *http.Request) {
	timeout, err := durationParam(r, "timeout")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	j, err := h.orch.WaitForJob(r.Context(), chi.URLParam(r, "id"), timeout)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.orch.GenerateStatusReport()))
}

func (h *Handler) resources(w http.ResponseWriter, r *http.Request) {
	resp := resourcesResponse{Usage: h.orch.GetCurrentResourceUsage()}
	if r.URL.Query().Get("host") == "true" {
		if host, err := h.orch.HostStats(); err == nil {
			resp.Host = &host
		} else {
			h.logger.Debug("host stats unavailable", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) prune(w http.ResponseWriter, r *http.Request) {
	olderThan, err := durationParam(r, "older_than")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": h.orch.Prune(olderThan)})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, usecase.ErrWaitTimeout):
		writeError(w, http.StatusRequestTimeout, err)
	case errors.Is(err, usecase.ErrOrchestratorClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err)
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func durationParam(r *http.Request, name string) (time.Duration, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", name)
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}
