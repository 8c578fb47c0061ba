package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// GroupService handles group business logic. Associate/Unlink manage the
// account-group edge only; Delete removes the group from every account.
type GroupService interface {
	// CreateGroup creates a group and associates it with the account
	CreateGroup(ctx context.Context, actorID, accountID string, req *CreateGroupRequest) (*models.Group, error)

	// GetGroup retrieves a group with members and account links loaded
	GetGroup(ctx context.Context, actorID, groupID string) (*models.Group, error)

	// ListGroups lists groups associated with an account
	ListGroups(ctx context.Context, actorID, accountID string) ([]models.Group, error)

	// UpdateGroup updates a group's name and description
	UpdateGroup(ctx context.Context, actorID, groupID string, req *UpdateGroupRequest) (*models.Group, error)

	// DeleteGroup deletes a group everywhere
	DeleteGroup(ctx context.Context, actorID, groupID string) error

	// AssociateGroup links an existing group to an account; duplicates conflict
	AssociateGroup(ctx context.Context, actorID, accountID, groupID string) error

	// UnlinkGroup removes the account-group edge, leaving the group intact
	UnlinkGroup(ctx context.Context, actorID, accountID, groupID string) error

	// AddGroupMember adds a user to a group
	AddGroupMember(ctx context.Context, actorID, groupID, userID string) error

	// RemoveGroupMember removes a user from a group
	RemoveGroupMember(ctx context.Context, actorID, groupID, userID string) error
}

// CreateGroupRequest represents a group creation request.
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateGroupRequest represents a group update request.
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
