package models

import (
	"time"
)

// Rule is a leaf document: a plain-text context snippet owned by exactly one
// folder. Synced copies carry the same link fields as folders so a single
// rule can be detached or resynced without touching its siblings.
type Rule struct {
	ID            string        `json:"id" db:"id"`
	FolderID      string        `json:"folder_id" db:"folder_id"`
	Name          string        `json:"name" db:"name"`
	Content       string        `json:"content" db:"content"`
	UsageCount    int           `json:"usage_count" db:"usage_count"`
	SyncStatus    SyncStatus    `json:"sync_status" db:"sync_status"`
	SourceOfTruth SourceOfTruth `json:"source_of_truth" db:"source_of_truth"`
	InheritedFrom *string       `json:"inherited_from,omitempty" db:"inherited_from"` // originating account rule id
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// Status derives the editable/read-only flag from the sync state.
func (r *Rule) Status() FolderStatus {
	if r.SyncStatus == SyncSynced {
		return StatusReadOnly
	}
	return StatusEditable
}
