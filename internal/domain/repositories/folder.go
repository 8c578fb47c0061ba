package repositories

import (
	"context"

	"rulebase/internal/domain/models"
)

// FolderRepository defines data access operations for folders. Tree
// traversal (closures, cycle checks) is done in the service layer over the
// flat lists these methods return, so every walk sees one snapshot.
type FolderRepository interface {
	// Create creates a new folder
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// Update updates a folder's mutable fields (name, parent, order, sync state)
	Update(ctx context.Context, folder *models.Folder) error

	// DeleteMany deletes the given folders; used by cascade delete inside a
	// transaction
	DeleteMany(ctx context.Context, ids []string) error

	// ListByAccount lists account-scoped folders (project_id IS NULL)
	ListByAccount(ctx context.Context, accountID string) ([]models.Folder, error)

	// ListByProject lists all folders owned by a project, synced copies included
	ListByProject(ctx context.Context, projectID string) ([]models.Folder, error)

	// GetSyncedCopy finds the project's synced/detached copy of an account
	// folder, nil if none exists
	GetSyncedCopy(ctx context.Context, accountFolderID, projectID string) (*models.Folder, error)

	// ListCopiesOf lists every project copy (any sync state) whose origin is
	// one of the given account folders; used when an account folder is
	// deleted so no synced pointer outlives its origin
	ListCopiesOf(ctx context.Context, accountFolderIDs []string) ([]models.Folder, error)
}
