package repositories

import (
	"context"

	"rulebase/internal/domain/models"
)

// MembershipRepository defines data access operations for account memberships.
type MembershipRepository interface {
	// Create creates a new membership
	Create(ctx context.Context, m *models.Membership) error

	// GetByAccountAndUser retrieves a user's membership in an account
	GetByAccountAndUser(ctx context.Context, accountID, userID string) (*models.Membership, error)

	// ListByAccount lists all memberships of an account
	ListByAccount(ctx context.Context, accountID string) ([]models.Membership, error)

	// UpdateRole changes a member's role
	UpdateRole(ctx context.Context, accountID, userID string, role models.Role) error

	// Delete removes a member from an account
	Delete(ctx context.Context, accountID, userID string) error

	// CountOwners counts owner-role memberships in an account
	CountOwners(ctx context.Context, accountID string) (int, error)

	// CountOwnedBy counts accounts in which the user holds the owner role
	CountOwnedBy(ctx context.Context, userID string) (int, error)
}
