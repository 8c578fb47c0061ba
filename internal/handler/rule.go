package handler

import (
	"context"
	"log/slog"
	"net/http"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/services"
	"rulebase/internal/httputil"
)

// RuleHandler handles rule HTTP requests
type RuleHandler struct {
	ruleService services.RuleService
	logger      *slog.Logger
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(ruleService services.RuleService, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
		logger:      logger,
	}
}

// CreateRule creates a rule in a folder
// POST /api/folders/{id}/rules
func (h *RuleHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	folderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.CreateRuleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}
	req.UserID = userID
	req.FolderID = folderID

	rule, err := h.ruleService.CreateRule(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, rule)
}

// ListRules lists a folder's rules
// GET /api/folders/{id}/rules
func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	folderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rules, err := h.ruleService.ListRules(r.Context(), userID, folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rules)
}

// GetRule retrieves a rule
// GET /api/rules/{id}
func (h *RuleHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rule, err := h.ruleService.GetRule(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rule)
}

// UpdateRule edits a rule's name or content
// PATCH /api/rules/{id}
func (h *RuleHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.UpdateRuleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	rule, err := h.ruleService.UpdateRule(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rule)
}

// DeleteRule deletes a rule
// DELETE /api/rules/{id}
func (h *RuleHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.ruleService.DeleteRule(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DetachRule breaks a single synced rule's link
// POST /api/rules/{id}/detach
func (h *RuleHandler) DetachRule(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.ruleService.DetachRule)
}

// ResyncRule overwrites a detached rule with its account original
// POST /api/rules/{id}/resync
func (h *RuleHandler) ResyncRule(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.ruleService.ResyncRule)
}

// RecordUsage bumps a rule's usage counter
// POST /api/rules/{id}/usage
func (h *RuleHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.ruleService.RecordUsage(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RuleHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, ruleID string) (*models.Rule, error)) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rule, err := op(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rule)
}
