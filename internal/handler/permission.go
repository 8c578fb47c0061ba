package handler

import (
	"log/slog"
	"net/http"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/services"
	"rulebase/internal/httputil"
)

// PermissionHandler handles permission grant HTTP requests
type PermissionHandler struct {
	permissionService services.PermissionService
	logger            *slog.Logger
}

// NewPermissionHandler creates a new permission handler
func NewPermissionHandler(permissionService services.PermissionService, logger *slog.Logger) *PermissionHandler {
	return &PermissionHandler{
		permissionService: permissionService,
		logger:            logger,
	}
}

// ListProjectPermissions lists explicit grants on a project
// GET /api/projects/{id}/permissions
func (h *PermissionHandler) ListProjectPermissions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ResourceProject)
}

// ListFolderPermissions lists explicit grants on a folder
// GET /api/folders/{id}/permissions
func (h *PermissionHandler) ListFolderPermissions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ResourceFolder)
}

func (h *PermissionHandler) list(w http.ResponseWriter, r *http.Request, resourceType models.ResourceType) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	perms, err := h.permissionService.ListPermissions(r.Context(), actorID, resourceType, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, perms)
}

// Grant creates an explicit grant
// POST /api/permissions
func (h *PermissionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.GrantRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	perm, err := h.permissionService.Grant(r.Context(), actorID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, perm)
}

// UpdateGrant changes a grant's permission type
// PATCH /api/permissions/{id}
func (h *PermissionHandler) UpdateGrant(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		PermissionType models.PermissionType `json:"permission_type"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	perm, err := h.permissionService.UpdateGrant(r.Context(), actorID, id, req.PermissionType)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, perm)
}

// Revoke removes a grant
// DELETE /api/permissions/{id}
func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.permissionService.Revoke(r.Context(), actorID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleInherit flips a resource's inherit_permissions flag
// PUT /api/permissions/inherit
func (h *PermissionHandler) ToggleInherit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		ResourceType models.ResourceType `json:"resource_type"`
		ResourceID   string              `json:"resource_id"`
		Enabled      bool                `json:"enabled"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil || req.ResourceID == "" {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "resource_type and resource_id are required")
		return
	}

	if err := h.permissionService.ToggleInherit(r.Context(), actorID, req.ResourceType, req.ResourceID, req.Enabled); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResolveProjectPermission computes the caller's effective permission on a
// project (or another member's with ?user_id=)
// GET /api/projects/{id}/permissions/effective
func (h *PermissionHandler) ResolveProjectPermission(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, models.ResourceProject)
}

// ResolveFolderPermission computes the effective permission on a folder
// GET /api/folders/{id}/permissions/effective
func (h *PermissionHandler) ResolveFolderPermission(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, models.ResourceFolder)
}

func (h *PermissionHandler) resolve(w http.ResponseWriter, r *http.Request, resourceType models.ResourceType) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	subject := actorID
	if v := r.URL.Query().Get("user_id"); v != "" && v != actorID {
		// resolving someone else requires admin on the resource
		own, err := h.permissionService.Resolve(r.Context(), actorID, resourceType, id)
		if err != nil {
			handleError(w, err)
			return
		}
		if own.PermissionType != models.PermissionAdmin {
			httputil.RespondError(w, http.StatusForbidden, domain.CodeForbidden, "admin access required to inspect another user's permissions")
			return
		}
		subject = v
	}

	eff, err := h.permissionService.Resolve(r.Context(), subject, resourceType, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, eff)
}
