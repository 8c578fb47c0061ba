package handler

import (
	"log/slog"
	"net/http"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/services"
	"rulebase/internal/httputil"
)

// MemberHandler handles account membership HTTP requests
type MemberHandler struct {
	membershipService services.MembershipService
	logger            *slog.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(membershipService services.MembershipService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{
		membershipService: membershipService,
		logger:            logger,
	}
}

// ListMembers lists an account's memberships
// GET /api/accounts/{id}/members
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.membershipService.ListMembers(r.Context(), actorID, accountID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}

// AddMember adds a user to the account
// POST /api/accounts/{id}/members
func (h *MemberHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.AddMemberRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	member, err := h.membershipService.AddMember(r.Context(), actorID, accountID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, member)
}

// ChangeRole changes a member's role
// PATCH /api/accounts/{id}/members/{userID}
func (h *MemberHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	member, err := h.membershipService.ChangeRole(r.Context(), actorID, accountID, userID, req.Role)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, member)
}

// RemoveMember removes a member from the account
// DELETE /api/accounts/{id}/members/{userID}
func (h *MemberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.membershipService.RemoveMember(r.Context(), actorID, accountID, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
