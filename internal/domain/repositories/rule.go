package repositories

import (
	"context"

	"rulebase/internal/domain/models"
)

// RuleRepository defines data access operations for rules.
type RuleRepository interface {
	// Create creates a new rule
	Create(ctx context.Context, rule *models.Rule) error

	// GetByID retrieves a rule by ID
	GetByID(ctx context.Context, id string) (*models.Rule, error)

	// Update updates a rule
	Update(ctx context.Context, rule *models.Rule) error

	// Delete deletes a rule
	Delete(ctx context.Context, id string) error

	// ListByFolder lists rules owned by a folder
	ListByFolder(ctx context.Context, folderID string) ([]models.Rule, error)

	// ListByFolders lists rules owned by any of the folders; used by cascade
	// delete and tree assembly
	ListByFolders(ctx context.Context, folderIDs []string) ([]models.Rule, error)

	// DeleteByFolders deletes every rule owned by the given folders
	DeleteByFolders(ctx context.Context, folderIDs []string) error

	// IncrementUsage bumps a rule's usage counter
	IncrementUsage(ctx context.Context, id string) error
}
