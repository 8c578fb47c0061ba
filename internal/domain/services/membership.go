package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// MembershipService handles account membership and the last-owner guard.
type MembershipService interface {
	// ListMembers lists an account's memberships
	ListMembers(ctx context.Context, actorID, accountID string) ([]models.Membership, error)

	// AddMember adds a user to an account with a role (admin role required)
	AddMember(ctx context.Context, actorID, accountID string, req *AddMemberRequest) (*models.Membership, error)

	// ChangeRole changes a member's role; demoting the last owner fails with
	// LastOwnerError
	ChangeRole(ctx context.Context, actorID, accountID, userID string, role models.Role) (*models.Membership, error)

	// RemoveMember removes a member; removing the last owner fails with
	// LastOwnerError
	RemoveMember(ctx context.Context, actorID, accountID, userID string) error
}

// AddMemberRequest represents a member addition request.
type AddMemberRequest struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
}
