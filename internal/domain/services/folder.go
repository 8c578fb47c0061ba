package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// FolderService handles folder business logic: CRUD, moves with cycle and
// read-only-target checks, and transactional cascade delete.
type FolderService interface {
	// CreateFolder creates a folder in an account or project scope
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Folder, error)

	// GetFolder retrieves a folder with its computed path
	GetFolder(ctx context.Context, userID, id string) (*models.Folder, error)

	// ListFolders lists the raw folder list of one scope
	ListFolders(ctx context.Context, userID string, accountID, projectID *string) ([]models.Folder, error)

	// UpdateFolder renames a folder or toggles permission inheritance;
	// synced folders are read-only
	UpdateFolder(ctx context.Context, userID, id string, req *UpdateFolderRequest) (*models.Folder, error)

	// MoveFolder reparents a folder; fails with CycleError or
	// ReadOnlyTargetError, nil parent moves to root
	MoveFolder(ctx context.Context, userID, id string, req *MoveFolderRequest) (*models.Folder, error)

	// DeleteFolder deletes a folder, its descendant closure and all rules
	// they own, in one transaction
	DeleteFolder(ctx context.Context, userID, id string) error
}

// CreateFolderRequest represents a folder creation request. Exactly one of
// AccountID/ProjectID must be set.
type CreateFolderRequest struct {
	UserID             string  `json:"-"`
	AccountID          *string `json:"account_id,omitempty"`
	ProjectID          *string `json:"project_id,omitempty"`
	ParentFolderID     *string `json:"parent_folder_id,omitempty"`
	Name               string  `json:"name"`
	DisplayOrder       int     `json:"display_order,omitempty"`
	InheritPermissions bool    `json:"inherit_permissions,omitempty"`
}

// UpdateFolderRequest represents a folder rename/flag update.
type UpdateFolderRequest struct {
	Name               *string `json:"name,omitempty"`
	InheritPermissions *bool   `json:"inherit_permissions,omitempty"`
}

// MoveFolderRequest reparents a folder and/or changes its display order.
// ParentFolderID only applies when SetParent is true; nil then means root.
// With SetParent false the folder keeps its parent (pure reorder).
type MoveFolderRequest struct {
	SetParent      bool    `json:"-"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`
	DisplayOrder   *int    `json:"display_order,omitempty"`
}
