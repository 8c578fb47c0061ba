package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// RuleService handles rule business logic. Content edits on synced rules
// fail with ReadOnlyError; detach/resync operate at rule granularity.
type RuleService interface {
	// CreateRule creates a rule in a folder
	CreateRule(ctx context.Context, req *CreateRuleRequest) (*models.Rule, error)

	// GetRule retrieves a rule by ID
	GetRule(ctx context.Context, userID, id string) (*models.Rule, error)

	// ListRules lists a folder's rules
	ListRules(ctx context.Context, userID, folderID string) ([]models.Rule, error)

	// UpdateRule updates name/content; synced rules are read-only
	UpdateRule(ctx context.Context, userID, id string, req *UpdateRuleRequest) (*models.Rule, error)

	// DeleteRule deletes a rule; synced rules must be detached first
	DeleteRule(ctx context.Context, userID, id string) error

	// DetachRule breaks a synced rule's link, making it editable
	DetachRule(ctx context.Context, userID, id string) (*models.Rule, error)

	// ResyncRule overwrites a detached rule with its account original and
	// re-links it; destructive to detached edits
	ResyncRule(ctx context.Context, userID, id string) (*models.Rule, error)

	// RecordUsage bumps a rule's usage counter
	RecordUsage(ctx context.Context, userID, id string) error
}

// CreateRuleRequest represents a rule creation request.
type CreateRuleRequest struct {
	UserID   string `json:"-"`
	FolderID string `json:"folder_id"`
	Name     string `json:"name"`
	Content  string `json:"content"`
}

// UpdateRuleRequest represents a rule update request.
type UpdateRuleRequest struct {
	Name    *string `json:"name,omitempty"`
	Content *string `json:"content,omitempty"`
}
