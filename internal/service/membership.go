package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
	"rulebase/internal/domain/services"
)

type membershipService struct {
	memberRepo repositories.MembershipRepository
	authorizer services.Authorizer
	logger     *slog.Logger
}

// NewMembershipService creates a new membership service.
func NewMembershipService(
	memberRepo repositories.MembershipRepository,
	authorizer services.Authorizer,
	logger *slog.Logger,
) services.MembershipService {
	return &membershipService{
		memberRepo: memberRepo,
		authorizer: authorizer,
		logger:     logger,
	}
}

// ListMembers lists an account's memberships.
func (s *membershipService) ListMembers(ctx context.Context, actorID, accountID string) ([]models.Membership, error) {
	if err := s.authorizer.RequireRole(ctx, actorID, accountID, models.RoleMember); err != nil {
		return nil, err
	}
	return s.memberRepo.ListByAccount(ctx, accountID)
}

// AddMember adds a user to an account.
func (s *membershipService) AddMember(ctx context.Context, actorID, accountID string, req *services.AddMemberRequest) (*models.Membership, error) {
	if err := s.authorizer.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return nil, err
	}
	if req.UserID == "" {
		return nil, &domain.ValidationError{Message: "user_id is required"}
	}
	if !req.Role.Valid() {
		return nil, &domain.ValidationError{Message: "invalid role"}
	}

	if existing, err := s.memberRepo.GetByAccountAndUser(ctx, accountID, req.UserID); err == nil {
		return nil, &domain.ConflictError{
			Message:      "user is already a member of this account",
			ResourceType: "membership",
			ResourceID:   existing.ID,
		}
	}

	now := time.Now()
	m := &models.Membership{
		ID:        uuid.NewString(),
		AccountID: accountID,
		UserID:    req.UserID,
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.memberRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("member added", "account_id", accountID, "user_id", req.UserID, "role", req.Role)
	return m, nil
}

// ChangeRole changes a member's role. Demoting the only owner is rejected
// with LastOwnerError; the guard lives here, not in permission resolution.
func (s *membershipService) ChangeRole(ctx context.Context, actorID, accountID, userID string, role models.Role) (*models.Membership, error) {
	if err := s.authorizer.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, &domain.ValidationError{Message: "invalid role"}
	}

	m, err := s.memberRepo.GetByAccountAndUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}

	if m.Role == models.RoleOwner && role != models.RoleOwner {
		owners, err := s.memberRepo.CountOwners(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, &domain.LastOwnerError{AccountID: accountID, UserID: userID}
		}
	}

	if err := s.memberRepo.UpdateRole(ctx, accountID, userID, role); err != nil {
		return nil, err
	}
	m.Role = role
	m.UpdatedAt = time.Now()

	s.logger.Info("member role changed", "account_id", accountID, "user_id", userID, "role", role)
	return m, nil
}

// RemoveMember removes a member. Removing the only owner is rejected with
// LastOwnerError. A member may remove themself.
func (s *membershipService) RemoveMember(ctx context.Context, actorID, accountID, userID string) error {
	if actorID != userID {
		if err := s.authorizer.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
			return err
		}
	}

	m, err := s.memberRepo.GetByAccountAndUser(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if m.Role == models.RoleOwner {
		owners, err := s.memberRepo.CountOwners(ctx, accountID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return &domain.LastOwnerError{AccountID: accountID, UserID: userID}
		}
	}

	if err := s.memberRepo.Delete(ctx, accountID, userID); err != nil {
		return err
	}
	s.logger.Info("member removed", "account_id", accountID, "user_id", userID, "removed_by", actorID)
	return nil
}
