package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// Authorizer gates service operations. RequireRole checks membership role at
// the account boundary; RequireAccess runs full permission resolution
// (direct, group and inherited grants) against a resource.
type Authorizer interface {
	// RequireRole fails with ForbiddenError unless the user's role in the
	// account is at least the given one (owner > admin > member).
	RequireRole(ctx context.Context, userID, accountID string, min models.Role) error

	// RequireAccess fails with ForbiddenError unless the user's effective
	// permission on the resource is at least the given level.
	RequireAccess(ctx context.Context, userID string, resourceType models.ResourceType, resourceID string, min models.PermissionType) error
}
