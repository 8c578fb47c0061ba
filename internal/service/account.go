package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
	"rulebase/internal/domain/services"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type accountService struct {
	accountRepo repositories.AccountRepository
	memberRepo  repositories.MembershipRepository
	txManager   repositories.TransactionManager
	authorizer  services.Authorizer
	logger      *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	accountRepo repositories.AccountRepository,
	memberRepo repositories.MembershipRepository,
	txManager repositories.TransactionManager,
	authorizer services.Authorizer,
	logger *slog.Logger,
) services.AccountService {
	return &accountService{
		accountRepo: accountRepo,
		memberRepo:  memberRepo,
		txManager:   txManager,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// CreateAccount creates an account plus the caller's owner membership in one
// transaction; an account without an owner is never observable.
func (s *accountService) CreateAccount(ctx context.Context, req *services.CreateAccountRequest) (*models.Account, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.Slug, validation.Required, validation.Match(slugPattern)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	plan := models.Plan(req.Plan)
	if req.Plan == "" {
		plan = models.PlanFree
	}
	switch plan {
	case models.PlanFree, models.PlanTeam, models.PlanEnterprise:
	default:
		return nil, &domain.ValidationError{Message: "unknown plan"}
	}

	now := time.Now()
	account := &models.Account{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      req.Slug,
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.accountRepo.Create(ctx, account); err != nil {
			return err
		}
		owner := &models.Membership{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			UserID:    req.UserID,
			Role:      models.RoleOwner,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.memberRepo.Create(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", "id", account.ID, "slug", account.Slug, "owner", req.UserID)
	return account, nil
}

// GetAccount retrieves an account the user belongs to.
func (s *accountService) GetAccount(ctx context.Context, userID, id string) (*models.Account, error) {
	if err := s.authorizer.RequireRole(ctx, userID, id, models.RoleMember); err != nil {
		return nil, err
	}
	return s.accountRepo.GetByID(ctx, id)
}

// ListAccounts lists the user's accounts.
func (s *accountService) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	return s.accountRepo.ListByUser(ctx, userID)
}

// UpdateAccount updates name/slug/plan.
func (s *accountService) UpdateAccount(ctx context.Context, userID, id string, req *services.UpdateAccountRequest) (*models.Account, error) {
	if err := s.authorizer.RequireRole(ctx, userID, id, models.RoleAdmin); err != nil {
		return nil, err
	}
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, &domain.ValidationError{Message: "name cannot be empty"}
		}
		account.Name = *req.Name
	}
	if req.Slug != nil {
		if !slugPattern.MatchString(*req.Slug) {
			return nil, &domain.ValidationError{Message: "invalid slug"}
		}
		account.Slug = *req.Slug
	}
	if req.Plan != nil {
		plan := models.Plan(*req.Plan)
		switch plan {
		case models.PlanFree, models.PlanTeam, models.PlanEnterprise:
			account.Plan = plan
		default:
			return nil, &domain.ValidationError{Message: "unknown plan"}
		}
	}
	account.UpdatedAt = time.Now()

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount deletes an account. The delete must not leave any of the
// account's owners with an empty account set, so each owner must own at
// least one other account.
func (s *accountService) DeleteAccount(ctx context.Context, userID, id string) error {
	if err := s.authorizer.RequireRole(ctx, userID, id, models.RoleOwner); err != nil {
		return err
	}

	members, err := s.memberRepo.ListByAccount(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.Role != models.RoleOwner {
			continue
		}
		owned, err := s.memberRepo.CountOwnedBy(ctx, m.UserID)
		if err != nil {
			return err
		}
		if owned <= 1 {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("cannot delete: this is the last account owned by user %s", m.UserID),
				ResourceType: "account",
				ResourceID:   id,
			}
		}
	}

	if err := s.accountRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("account deleted", "id", id, "deleted_by", userID)
	return nil
}
