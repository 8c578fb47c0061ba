package repositories

import (
	"context"

	"rulebase/internal/domain/models"
)

// GroupRepository defines data access operations for groups, their members
// and their account associations.
type GroupRepository interface {
	// Create creates a new group
	Create(ctx context.Context, group *models.Group) error

	// GetByID retrieves a group by ID
	GetByID(ctx context.Context, id string) (*models.Group, error)

	// Update updates a group's name and description
	Update(ctx context.Context, group *models.Group) error

	// Delete deletes a group, its member rows and account associations
	Delete(ctx context.Context, id string) error

	// ListByAccount lists groups associated with an account
	ListByAccount(ctx context.Context, accountID string) ([]models.Group, error)

	// Associate links a group to an account; duplicate associations conflict
	Associate(ctx context.Context, accountID, groupID string) error

	// Unlink removes the account-group edge only
	Unlink(ctx context.Context, accountID, groupID string) error

	// AddMember adds a user to a group
	AddMember(ctx context.Context, groupID, userID string) error

	// RemoveMember removes a user from a group
	RemoveMember(ctx context.Context, groupID, userID string) error

	// ListMemberIDs lists the user ids in a group
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)

	// ListAccountIDs lists the account ids a group is associated with
	ListAccountIDs(ctx context.Context, groupID string) ([]string, error)

	// ListGroupIDsForUser lists ids of groups the user belongs to that are
	// associated with the given account
	ListGroupIDsForUser(ctx context.Context, accountID, userID string) ([]string, error)
}
