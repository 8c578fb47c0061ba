package models

import (
	"time"
)

// SyncStatus is the link state between a project node and its account origin.
type SyncStatus string

const (
	// SyncLocal means the node was created directly in the project.
	SyncLocal SyncStatus = "local"
	// SyncSynced means the node is a read-only copy of an account node.
	SyncSynced SyncStatus = "synced"
	// SyncDetached means the node was synced once and is now independent.
	SyncDetached SyncStatus = "detached"
)

// SourceOfTruth names which scope owns the node's content.
type SourceOfTruth string

const (
	SourceAccount SourceOfTruth = "account"
	SourceProject SourceOfTruth = "project"
)

// FolderStatus is derived from SyncStatus: synced nodes are read-only.
type FolderStatus string

const (
	StatusEditable FolderStatus = "editable"
	StatusReadOnly FolderStatus = "read-only"
)

// Folder is a node in either an account tree (AccountID set, ProjectID nil)
// or a project tree (ProjectID set). A synced copy carries both ids: the
// account id of its origin and the project id that owns it; this is the one
// exception to scope exclusivity.
type Folder struct {
	ID                 string        `json:"id" db:"id"`
	AccountID          *string       `json:"account_id,omitempty" db:"account_id"`
	ProjectID          *string       `json:"project_id,omitempty" db:"project_id"`
	ParentFolderID     *string       `json:"parent_folder_id,omitempty" db:"parent_folder_id"` // NULL = root level
	Name               string        `json:"name" db:"name"`
	Path               string        `json:"path,omitempty"` // computed display path, not stored
	DisplayOrder       int           `json:"display_order" db:"display_order"`
	SyncStatus         SyncStatus    `json:"sync_status" db:"sync_status"`
	SourceOfTruth      SourceOfTruth `json:"source_of_truth" db:"source_of_truth"`
	InheritedFrom      *string       `json:"inherited_from,omitempty" db:"inherited_from"` // originating account folder id
	InheritPermissions bool          `json:"inherit_permissions" db:"inherit_permissions"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// Status derives the editable/read-only flag from the sync state.
func (f *Folder) Status() FolderStatus {
	if f.SyncStatus == SyncSynced {
		return StatusReadOnly
	}
	return StatusEditable
}

// IsAccountScoped reports whether the folder lives in the account tree
// (as opposed to being a project node or a synced copy owned by a project).
func (f *Folder) IsAccountScoped() bool {
	return f.ProjectID == nil && f.AccountID != nil
}
