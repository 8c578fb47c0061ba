package repositories

import (
	"context"

	"rulebase/internal/domain/models"
)

// PermissionRepository defines data access operations for explicit
// permission grants. Materialized (inherited) results never pass through
// this interface.
type PermissionRepository interface {
	// Create creates a new grant
	Create(ctx context.Context, p *models.Permission) error

	// GetByID retrieves a grant by ID
	GetByID(ctx context.Context, id string) (*models.Permission, error)

	// Update changes a grant's permission type
	Update(ctx context.Context, p *models.Permission) error

	// Delete removes a grant
	Delete(ctx context.Context, id string) error

	// ListByResource lists all grants on a resource
	ListByResource(ctx context.Context, resourceType models.ResourceType, resourceID string) ([]models.Permission, error)

	// ListForPrincipal lists grants on a resource that target the user
	// directly or any of the given groups
	ListForPrincipal(ctx context.Context, resourceType models.ResourceType, resourceID, userID string, groupIDs []string) ([]models.Permission, error)

	// DeleteByResources removes all grants on the given resources; used when
	// cascading a folder delete
	DeleteByResources(ctx context.Context, resourceType models.ResourceType, resourceIDs []string) error
}
