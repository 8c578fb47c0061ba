package models

import (
	"time"
)

// FolderTreeNode is one folder in a nested tree response, with its child
// folders and rules inlined.
type FolderTreeNode struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	ParentFolderID *string           `json:"parent_folder_id,omitempty"`
	SyncStatus     SyncStatus        `json:"sync_status"`
	FolderStatus   FolderStatus      `json:"folder_status"`
	InheritedFrom  *string           `json:"inherited_from,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Folders        []*FolderTreeNode `json:"folders"`
	Rules          []RuleTreeNode    `json:"rules"`
}

// RuleTreeNode is rule metadata inside a tree response (no content body).
type RuleTreeNode struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	FolderID   string     `json:"folder_id"`
	SyncStatus SyncStatus `json:"sync_status"`
	UsageCount int        `json:"usage_count"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TreeNode is the root of a tree response.
type TreeNode struct {
	Folders []*FolderTreeNode `json:"folders"`
}
