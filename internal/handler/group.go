package handler

import (
	"log/slog"
	"net/http"

	"rulebase/internal/domain"
	"rulebase/internal/domain/services"
	"rulebase/internal/httputil"
)

// GroupHandler handles group HTTP requests
type GroupHandler struct {
	groupService services.GroupService
	logger       *slog.Logger
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService services.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		logger:       logger,
	}
}

// CreateGroup creates a group associated with the account
// POST /api/accounts/{id}/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.CreateGroupRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	group, err := h.groupService.CreateGroup(r.Context(), actorID, accountID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, group)
}

// ListGroups lists groups associated with an account
// GET /api/accounts/{id}/groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroups(r.Context(), actorID, accountID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, groups)
}

// GetGroup retrieves a group with members and account links
// GET /api/groups/{id}
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	group, err := h.groupService.GetGroup(r.Context(), actorID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, group)
}

// UpdateGroup updates a group's name/description
// PATCH /api/groups/{id}
func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.UpdateGroupRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	group, err := h.groupService.UpdateGroup(r.Context(), actorID, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, group)
}

// DeleteGroup deletes a group everywhere
// DELETE /api/groups/{id}
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.groupService.DeleteGroup(r.Context(), actorID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AssociateGroup links an existing group to an account
// PUT /api/accounts/{id}/groups/{groupID}
func (h *GroupHandler) AssociateGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}

	if err := h.groupService.AssociateGroup(r.Context(), actorID, accountID, groupID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnlinkGroup removes the account-group association only
// DELETE /api/accounts/{id}/groups/{groupID}
func (h *GroupHandler) UnlinkGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}

	if err := h.groupService.UnlinkGroup(r.Context(), actorID, accountID, groupID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddGroupMember adds a user to a group
// POST /api/groups/{id}/members
func (h *GroupHandler) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil || req.UserID == "" {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "user_id is required")
		return
	}

	if err := h.groupService.AddGroupMember(r.Context(), actorID, groupID, req.UserID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveGroupMember removes a user from a group
// DELETE /api/groups/{id}/members/{userID}
func (h *GroupHandler) RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.groupService.RemoveGroupMember(r.Context(), actorID, groupID, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
