package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// PermissionService handles explicit grants and effective resolution.
type PermissionService interface {
	// ListPermissions lists explicit grants on a resource
	ListPermissions(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string) ([]models.Permission, error)

	// Grant creates an explicit grant
	Grant(ctx context.Context, actorID string, req *GrantRequest) (*models.Permission, error)

	// UpdateGrant changes a grant's permission type
	UpdateGrant(ctx context.Context, actorID, id string, permissionType models.PermissionType) (*models.Permission, error)

	// Revoke removes a grant
	Revoke(ctx context.Context, actorID, id string) error

	// ToggleInherit flips a resource's inherit_permissions flag
	ToggleInherit(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string, enabled bool) error

	// Resolve computes the user's effective permission on a resource from
	// direct grants, group grants and permission inheritance. "No access"
	// resolves to none; it is never an error.
	Resolve(ctx context.Context, userID string, resourceType models.ResourceType, resourceID string) (*models.EffectivePermission, error)
}

// GrantRequest represents a permission grant request.
type GrantRequest struct {
	ResourceType   models.ResourceType   `json:"resource_type"`
	ResourceID     string                `json:"resource_id"`
	TargetType     models.TargetType     `json:"target_type"`
	TargetID       string                `json:"target_id"`
	PermissionType models.PermissionType `json:"permission_type"`
}
