package repositories

import (
	"context"

	"rulebase/internal/domain/models"
)

// ProjectRepository defines data access operations for projects.
type ProjectRepository interface {
	// Create creates a new project
	Create(ctx context.Context, project *models.Project) error

	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id string) (*models.Project, error)

	// Update updates a project
	Update(ctx context.Context, project *models.Project) error

	// Delete deletes a project
	Delete(ctx context.Context, id string) error

	// ListByAccount lists all projects of an account
	ListByAccount(ctx context.Context, accountID string) ([]models.Project, error)

	// CountByAccount counts projects in an account (plan limit checks)
	CountByAccount(ctx context.Context, accountID string) (int, error)
}
