package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// SyncService links account folders into projects and manages the synced /
// detached lifecycle at folder granularity. All three operations run under
// the account lock and inside one transaction.
type SyncService interface {
	// SyncFolder creates a synced read-only copy of an account folder (and
	// its rules) in a project; fails with AlreadySyncedError when a copy for
	// the pair exists
	SyncFolder(ctx context.Context, userID, accountFolderID, projectID string) (*models.Folder, error)

	// DetachFolder breaks the link of a synced project folder and its synced
	// rules; content is preserved and becomes project-owned
	DetachFolder(ctx context.Context, userID, folderID string) (*models.Folder, error)

	// ResyncFolder overwrites a detached folder (and its rules) with the
	// current account originals and re-links it; destructive to detached
	// edits, so callers must confirm first
	ResyncFolder(ctx context.Context, userID, folderID string) (*models.Folder, error)
}
