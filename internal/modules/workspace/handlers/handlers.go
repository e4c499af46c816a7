// Package handlers provides HTTP handlers for workspace and adjustment
// endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"forecastdesk/internal/domain"
	"forecastdesk/internal/modules/audit"
	"forecastdesk/internal/modules/workspace"
)

// Handler provides HTTP handlers for workspace endpoints
type Handler struct {
	manager *workspace.Manager
	log     zerolog.Logger
}

// NewHandler creates a new workspace handler
func NewHandler(manager *workspace.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		manager: manager,
		log:     log.With().Str("handler", "workspace").Logger(),
	}
}

// RegisterRoutes registers workspace routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/workspaces", func(r chi.Router) {
		r.Post("/", h.HandleCreateWorkspace)

		r.Route("/{workspaceID}", func(r chi.Router) {
			r.Get("/snapshot", h.HandleSnapshot)

			r.Post("/decisions", h.HandleCreateDecision)
			r.Get("/decisions", h.HandleListDecisions)
			r.Post("/decisions/{decisionID}/complete", h.HandleCompleteDecision)

			r.Post("/adjustments/global", h.HandleGlobalAdjustment)
			r.Post("/adjustments/local", h.HandleLocalAdjustment)
			r.Post("/adjustments/mixed", h.HandleMixedAdjustment)
			r.Post("/adjustments/reset", h.HandleResetAdjustments)

			r.Post("/optimize", h.HandleOptimize)
			r.Get("/history", h.HandleHistory)
			r.Get("/export", h.HandleExport)
		})
	})
}

// mixedAdjustmentBody combines a global sweep and point overrides in a single
// atomic request.
type mixedAdjustmentBody struct {
	Global *domain.GlobalAdjustmentRequest `json:"global,omitempty"`
	Locals []domain.LocalAdjustmentRequest `json:"locals,omitempty"`
}

type decisionBody struct {
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
}

// HandleCreateWorkspace handles POST /api/workspaces
func (h *Handler) HandleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var intake domain.ForecastIntake
	if err := json.NewDecoder(r.Body).Decode(&intake); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	ws, err := h.manager.Create(intake)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"workspace_id": ws.ID(),
		"snapshot":     ws.Snapshot(),
	})
}

// HandleSnapshot handles GET /api/workspaces/{workspaceID}/snapshot
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ws.Snapshot())
}

// HandleCreateDecision handles POST /api/workspaces/{workspaceID}/decisions
func (h *Handler) HandleCreateDecision(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var body decisionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	decision, err := ws.CreateDecision(body.Label, body.Rationale)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, decision)
}

// HandleListDecisions handles GET /api/workspaces/{workspaceID}/decisions
func (h *Handler) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := map[string]interface{}{"decisions": ws.Decisions()}
	if active, ok := ws.ActiveDecision(); ok {
		response["active_decision_id"] = active.ID
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleCompleteDecision handles POST /api/workspaces/{workspaceID}/decisions/{decisionID}/complete
func (h *Handler) HandleCompleteDecision(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	decision, err := ws.CompleteDecision(chi.URLParam(r, "decisionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, decision)
}

// HandleGlobalAdjustment handles POST /api/workspaces/{workspaceID}/adjustments/global
func (h *Handler) HandleGlobalAdjustment(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req domain.GlobalAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	snapshot, err := ws.ApplyGlobalAdjustment(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleLocalAdjustment handles POST /api/workspaces/{workspaceID}/adjustments/local
func (h *Handler) HandleLocalAdjustment(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var reqs []domain.LocalAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	snapshot, err := ws.ApplyLocalAdjustment(reqs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleMixedAdjustment handles POST /api/workspaces/{workspaceID}/adjustments/mixed
func (h *Handler) HandleMixedAdjustment(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var body mixedAdjustmentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	snapshot, err := ws.ApplyMixedAdjustment(body.Global, body.Locals)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleResetAdjustments handles POST /api/workspaces/{workspaceID}/adjustments/reset
func (h *Handler) HandleResetAdjustments(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	snapshot, err := ws.ResetAdjustments()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleOptimize handles POST /api/workspaces/{workspaceID}/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req domain.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	result, err := ws.OptimizeAdjustment(req.TargetTotal, req.Hours)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleHistory handles GET /api/workspaces/{workspaceID}/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	filter := audit.Filter{
		DecisionID: r.URL.Query().Get("decision_id"),
		Kind:       audit.Kind(r.URL.Query().Get("kind")),
	}
	entries := ws.History(filter)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// HandleExport handles GET /api/workspaces/{workspaceID}/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaceFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	export := ws.Export()
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s_%s.json", export.TargetDate, ws.ID()))
		if err := export.WriteJSON(w); err != nil {
			h.log.Error().Err(err).Msg("Failed to write JSON export")
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s_%s.csv", export.TargetDate, ws.ID()))
		if err := export.WriteCSV(w); err != nil {
			h.log.Error().Err(err).Msg("Failed to write CSV export")
		}
	default:
		h.writeError(w, domain.NewValidationError("unknown export format %q", format))
	}
}

func (h *Handler) workspaceFrom(r *http.Request) (*workspace.Workspace, error) {
	return h.manager.Get(chi.URLParam(r, "workspaceID"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors to HTTP status codes. Anything outside the
// domain taxonomy is a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal_error"

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		kind = string(domainErr.Kind)
		switch domainErr.Kind {
		case domain.ErrValidation, domain.ErrDivisionByZero:
			status = http.StatusUnprocessableEntity
		case domain.ErrNoActiveDecision, domain.ErrInvalidStateTransition:
			status = http.StatusConflict
		case domain.ErrNotFound:
			status = http.StatusNotFound
		}
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  kind,
	})
}
