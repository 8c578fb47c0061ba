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

// FolderHandler handles folder HTTP requests, including the sync lifecycle
// operations (sync, detach, resync).
type FolderHandler struct {
	folderService services.FolderService
	syncService   services.SyncService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService services.FolderService, syncService services.SyncService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		syncService:   syncService,
		logger:        logger,
	}
}

// CreateFolder creates a folder in an account or project scope
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}
	if req.AccountID == nil && req.ProjectID == nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeNoAccountContext, "account_id or project_id is required")
		return
	}
	req.UserID = userID

	folder, err := h.folderService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// ListFolders lists one scope's flat folder list
// GET /api/folders?account_id=... | ?project_id=...
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var accountID, projectID *string
	if v := r.URL.Query().Get("account_id"); v != "" {
		accountID = &v
	}
	if v := r.URL.Query().Get("project_id"); v != "" {
		projectID = &v
	}

	folders, err := h.folderService.ListFolders(r.Context(), userID, accountID, projectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folders)
}

// GetFolder retrieves a folder with its computed path
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// UpdateFolder renames a folder or toggles permission inheritance
// PATCH /api/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.UpdateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	folder, err := h.folderService.UpdateFolder(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// MoveFolder reparents a folder; null parent_folder_id moves to root,
// an omitted one keeps the current parent (display_order-only reorder)
// POST /api/folders/{id}/move
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		ParentFolderID httputil.OptionalString `json:"parent_folder_id"`
		DisplayOrder   *int                    `json:"display_order"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	req := services.MoveFolderRequest{
		SetParent:      body.ParentFolderID.Present,
		ParentFolderID: body.ParentFolderID.Value,
		DisplayOrder:   body.DisplayOrder,
	}

	folder, err := h.folderService.MoveFolder(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder, its descendants and their rules
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SyncFolder creates a synced copy of an account folder in a project
// POST /api/folders/{id}/sync
func (h *FolderHandler) SyncFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		ProjectID string `json:"project_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil || req.ProjectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "project_id is required")
		return
	}

	copy, err := h.syncService.SyncFolder(r.Context(), userID, id, req.ProjectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, copy)
}

// DetachFolder breaks a synced folder's link, making it editable
// POST /api/folders/{id}/detach
func (h *FolderHandler) DetachFolder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.syncService.DetachFolder)
}

// ResyncFolder overwrites a detached folder with its account original
// POST /api/folders/{id}/resync
func (h *FolderHandler) ResyncFolder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.syncService.ResyncFolder)
}

func (h *FolderHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, folderID string) (*models.Folder, error)) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	folder, err := op(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}
