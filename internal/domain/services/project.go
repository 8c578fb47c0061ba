package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// ProjectService handles project business logic, including the inheritance
// mode side effects: entering full syncs every account root folder, entering
// none detaches every synced folder (content preserved).
type ProjectService interface {
	// CreateProject creates a project in an account
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*models.Project, error)

	// GetProject retrieves a project by ID
	GetProject(ctx context.Context, userID, id string) (*models.Project, error)

	// ListProjects lists an account's projects
	ListProjects(ctx context.Context, userID, accountID string) ([]models.Project, error)

	// UpdateProject updates a project; an inheritance mode change triggers
	// the resolver's sync/detach side effects synchronously
	UpdateProject(ctx context.Context, userID, id string, req *UpdateProjectRequest) (*models.Project, error)

	// DeleteProject deletes a project and its folder tree
	DeleteProject(ctx context.Context, userID, id string) error

	// SyncImpact reports how many currently synced folders a mode change
	// would detach, so callers can warn before confirming
	SyncImpact(ctx context.Context, userID, id string, mode models.InheritanceMode) (*SyncImpact, error)
}

// CreateProjectRequest represents a project creation request.
type CreateProjectRequest struct {
	UserID          string `json:"-"`
	AccountID       string `json:"account_id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	InheritanceMode string `json:"inheritance_mode,omitempty"` // defaults to partial
}

// UpdateProjectRequest represents a project update request. Switching
// InheritanceMode to none requires ConfirmDetach when synced folders exist.
type UpdateProjectRequest struct {
	Name               *string `json:"name,omitempty"`
	Slug               *string `json:"slug,omitempty"`
	InheritanceMode    *string `json:"inheritance_mode,omitempty"`
	InheritPermissions *bool   `json:"inherit_permissions,omitempty"`
	ConfirmDetach      bool    `json:"confirm_detach,omitempty"`
}

// SyncImpact is the detach-count preview for a pending mode change.
type SyncImpact struct {
	ProjectID    string                 `json:"project_id"`
	Mode         models.InheritanceMode `json:"mode"`
	DetachCount  int                    `json:"detach_count"`
	SyncCount    int                    `json:"sync_count"`
	NeedsConfirm bool                   `json:"needs_confirm"`
}
