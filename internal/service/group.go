package service

import (
	"context"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"rulebase/internal/config"
	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
	"rulebase/internal/domain/services"
)

type groupService struct {
	groupRepo   repositories.GroupRepository
	accountRepo repositories.AccountRepository
	txManager   repositories.TransactionManager
	authorizer  services.Authorizer
	limits      *config.Limits
	logger      *slog.Logger
}

// NewGroupService creates a new group service.
func NewGroupService(
	groupRepo repositories.GroupRepository,
	accountRepo repositories.AccountRepository,
	txManager repositories.TransactionManager,
	authorizer services.Authorizer,
	limits *config.Limits,
	logger *slog.Logger,
) services.GroupService {
	return &groupService{
		groupRepo:   groupRepo,
		accountRepo: accountRepo,
		txManager:   txManager,
		authorizer:  authorizer,
		limits:      limits,
		logger:      logger,
	}
}

// CreateGroup creates a group and its first account association atomically.
func (s *groupService) CreateGroup(ctx context.Context, actorID, accountID string, req *services.CreateGroupRequest) (*models.Group, error) {
	if err := s.authorizer.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 120)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	existing, err := s.groupRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if max := s.limits.For(account.Plan).MaxGroupsPerAccount; len(existing) >= max {
		return nil, &domain.LimitExceededError{Resource: "groups per account", Limit: max}
	}

	now := time.Now()
	group := &models.Group{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.groupRepo.Create(ctx, group); err != nil {
			return err
		}
		return s.groupRepo.Associate(ctx, accountID, group.ID)
	})
	if err != nil {
		return nil, err
	}
	group.AccountIDs = []string{accountID}

	s.logger.Info("group created", "id", group.ID, "name", group.Name, "account_id", accountID)
	return group, nil
}

// GetGroup retrieves a group with members and account links loaded.
func (s *groupService) GetGroup(ctx context.Context, actorID, groupID string) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.requireGroupAccess(ctx, actorID, group, models.RoleMember); err != nil {
		return nil, err
	}
	if group.MemberIDs, err = s.groupRepo.ListMemberIDs(ctx, groupID); err != nil {
		return nil, err
	}
	if group.AccountIDs, err = s.groupRepo.ListAccountIDs(ctx, groupID); err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroups lists groups associated with an account.
func (s *groupService) ListGroups(ctx context.Context, actorID, accountID string) ([]models.Group, error) {
	if err := s.authorizer.RequireRole(ctx, actorID, accountID, models.RoleMember); err != nil {
		return nil, err
	}
	return s.groupRepo.ListByAccount(ctx, accountID)
}

// UpdateGroup updates a group's name and description.
func (s *groupService) UpdateGroup(ctx context.Context, actorID, groupID string, req *services.UpdateGroupRequest) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.requireGroupAccess(ctx, actorID, group, models.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, &domain.ValidationError{Message: "name cannot be empty"}
		}
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	group.UpdatedAt = time.Now()
	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup deletes a group everywhere, unlike Unlink which removes one
// account edge.
func (s *groupService) DeleteGroup(ctx context.Context, actorID, groupID string) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.requireGroupAccess(ctx, actorID, group, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.groupRepo.Delete(ctx, groupID); err != nil {
		return err
	}
	s.logger.Info("group deleted", "id", groupID, "deleted_by", actorID)
	return nil
}

// AssociateGroup links an existing group to an account.
func (s *groupService) AssociateGroup(ctx context.Context, actorID, accountID, groupID string) error {
	if err := s.authorizer.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return err
	}
	accountIDs, err := s.groupRepo.ListAccountIDs(ctx, groupID)
	if err != nil {
		return err
	}
	for _, id := range accountIDs {
		if id == accountID {
			return &domain.ConflictError{
				Message:      "group is already associated with this account",
				ResourceType: "group",
				ResourceID:   groupID,
			}
		}
	}
	if err := s.groupRepo.Associate(ctx, accountID, groupID); err != nil {
		return err
	}
	s.logger.Info("group associated", "group_id", groupID, "account_id", accountID)
	return nil
}

// UnlinkGroup removes the account-group edge only; the group and its other
// associations survive.
func (s *groupService) UnlinkGroup(ctx context.Context, actorID, accountID, groupID string) error {
	if err := s.authorizer.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.groupRepo.Unlink(ctx, accountID, groupID); err != nil {
		return err
	}
	s.logger.Info("group unlinked", "group_id", groupID, "account_id", accountID)
	return nil
}

// AddGroupMember adds a user to a group.
func (s *groupService) AddGroupMember(ctx context.Context, actorID, groupID, userID string) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.requireGroupAccess(ctx, actorID, group, models.RoleAdmin); err != nil {
		return err
	}
	if userID == "" {
		return &domain.ValidationError{Message: "user_id is required"}
	}
	memberIDs, err := s.groupRepo.ListMemberIDs(ctx, groupID)
	if err != nil {
		return err
	}
	for _, id := range memberIDs {
		if id == userID {
			return &domain.ConflictError{
				Message:      "user is already a member of this group",
				ResourceType: "group",
				ResourceID:   groupID,
			}
		}
	}
	return s.groupRepo.AddMember(ctx, groupID, userID)
}

// RemoveGroupMember removes a user from a group.
func (s *groupService) RemoveGroupMember(ctx context.Context, actorID, groupID, userID string) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.requireGroupAccess(ctx, actorID, group, models.RoleAdmin); err != nil {
		return err
	}
	return s.groupRepo.RemoveMember(ctx, groupID, userID)
}

// requireGroupAccess authorizes group-level operations: the actor needs the
// given role in at least one account the group is associated with.
func (s *groupService) requireGroupAccess(ctx context.Context, actorID string, group *models.Group, min models.Role) error {
	accountIDs, err := s.groupRepo.ListAccountIDs(ctx, group.ID)
	if err != nil {
		return err
	}
	for _, accountID := range accountIDs {
		if err := s.authorizer.RequireRole(ctx, actorID, accountID, min); err == nil {
			return nil
		}
	}
	return &domain.ForbiddenError{Message: "no access to this group"}
}
