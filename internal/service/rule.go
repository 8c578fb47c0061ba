package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"rulebase/internal/config"
	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
	"rulebase/internal/domain/services"
	"rulebase/internal/service/hierarchy"
)

type ruleService struct {
	ruleRepo    repositories.RuleRepository
	folderRepo  repositories.FolderRepository
	projectRepo repositories.ProjectRepository
	accountRepo repositories.AccountRepository
	txManager   repositories.TransactionManager
	locker      *hierarchy.AccountLocker
	authorizer  services.Authorizer
	limits      *config.Limits
	logger      *slog.Logger
}

// NewRuleService creates a new rule service.
func NewRuleService(
	ruleRepo repositories.RuleRepository,
	folderRepo repositories.FolderRepository,
	projectRepo repositories.ProjectRepository,
	accountRepo repositories.AccountRepository,
	txManager repositories.TransactionManager,
	locker *hierarchy.AccountLocker,
	authorizer services.Authorizer,
	limits *config.Limits,
	logger *slog.Logger,
) services.RuleService {
	return &ruleService{
		ruleRepo:    ruleRepo,
		folderRepo:  folderRepo,
		projectRepo: projectRepo,
		accountRepo: accountRepo,
		txManager:   txManager,
		locker:      locker,
		authorizer:  authorizer,
		limits:      limits,
		logger:      logger,
	}
}

// CreateRule creates a rule inside an editable folder. Synced folders
// reject new rules the same way they reject new subfolders.
func (s *ruleService) CreateRule(ctx context.Context, req *services.CreateRuleRequest) (*models.Rule, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.FolderID, validation.Required),
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxRuleNameLength)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if len(req.Content) > config.MaxRuleContentBytes {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("content exceeds %d bytes", config.MaxRuleContentBytes)}
	}

	if err := s.authorizer.RequireAccess(ctx, req.UserID, models.ResourceFolder, req.FolderID, models.PermissionWrite); err != nil {
		return nil, err
	}
	folder, err := s.folderRepo.GetByID(ctx, req.FolderID)
	if err != nil {
		return nil, err
	}
	if folder.SyncStatus == models.SyncSynced {
		return nil, &domain.ReadOnlyTargetError{TargetID: folder.ID}
	}

	accountID, err := s.folderAccountID(ctx, folder)
	if err != nil {
		return nil, err
	}
	unlock := s.locker.Lock(accountID)
	defer unlock()

	existing, err := s.ruleRepo.ListByFolder(ctx, folder.ID)
	if err != nil {
		return nil, err
	}
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if max := s.limits.For(account.Plan).MaxRulesPerFolder; len(existing) >= max {
		return nil, &domain.LimitExceededError{Resource: "rules per folder", Limit: max}
	}
	for _, r := range existing {
		if r.Name == req.Name {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("a rule named %q already exists in this folder", req.Name),
				ResourceType: "rule",
				ResourceID:   r.ID,
			}
		}
	}

	now := time.Now()
	rule := &models.Rule{
		ID:            uuid.NewString(),
		FolderID:      folder.ID,
		Name:          req.Name,
		Content:       req.Content,
		SyncStatus:    models.SyncLocal,
		SourceOfTruth: models.SourceProject,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if folder.IsAccountScoped() {
		rule.SourceOfTruth = models.SourceAccount
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("rule created", "id", rule.ID, "folder_id", rule.FolderID, "name", rule.Name)
	return rule, nil
}

// GetRule retrieves a rule by ID.
func (s *ruleService) GetRule(ctx context.Context, userID, id string) (*models.Rule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, rule.FolderID, models.PermissionRead); err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules lists a folder's rules.
func (s *ruleService) ListRules(ctx context.Context, userID, folderID string) ([]models.Rule, error) {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, folderID, models.PermissionRead); err != nil {
		return nil, err
	}
	if _, err := s.folderRepo.GetByID(ctx, folderID); err != nil {
		return nil, err
	}
	return s.ruleRepo.ListByFolder(ctx, folderID)
}

// UpdateRule edits name or content. Synced rules are read-only until
// detached.
func (s *ruleService) UpdateRule(ctx context.Context, userID, id string, req *services.UpdateRuleRequest) (*models.Rule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, rule.FolderID, models.PermissionWrite); err != nil {
		return nil, err
	}
	if err := hierarchy.EnsureRuleEditable(rule); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > config.MaxRuleNameLength {
			return nil, &domain.ValidationError{Message: "invalid rule name"}
		}
		siblings, err := s.ruleRepo.ListByFolder(ctx, rule.FolderID)
		if err != nil {
			return nil, err
		}
		for _, sib := range siblings {
			if sib.ID != rule.ID && sib.Name == name {
				return nil, &domain.ConflictError{
					Message:      fmt.Sprintf("a rule named %q already exists in this folder", name),
					ResourceType: "rule",
					ResourceID:   sib.ID,
				}
			}
		}
		rule.Name = name
	}
	if req.Content != nil {
		if len(*req.Content) > config.MaxRuleContentBytes {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("content exceeds %d bytes", config.MaxRuleContentBytes)}
		}
		rule.Content = *req.Content
	}
	rule.UpdatedAt = time.Now()

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule deletes a rule. Synced rules must be detached first; deleting
// an account rule does not touch project copies, those fall out of date
// until the next folder resync.
func (s *ruleService) DeleteRule(ctx context.Context, userID, id string) error {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, rule.FolderID, models.PermissionWrite); err != nil {
		return err
	}
	if err := hierarchy.EnsureRuleEditable(rule); err != nil {
		return err
	}
	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("rule deleted", "id", id, "folder_id", rule.FolderID)
	return nil
}

// DetachRule breaks a single synced rule's link without touching its
// folder or siblings.
func (s *ruleService) DetachRule(ctx context.Context, userID, id string) (*models.Rule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, rule.FolderID, models.PermissionWrite); err != nil {
		return nil, err
	}

	accountID, err := s.ruleAccountID(ctx, rule)
	if err != nil {
		return nil, err
	}
	unlock := s.locker.Lock(accountID)
	defer unlock()

	if err := hierarchy.DetachRule(rule, time.Now()); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("rule detached", "id", rule.ID, "folder_id", rule.FolderID)
	return rule, nil
}

// ResyncRule overwrites a detached rule with its account original and
// re-links it. Local edits made while detached are lost.
func (s *ruleService) ResyncRule(ctx context.Context, userID, id string) (*models.Rule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, rule.FolderID, models.PermissionWrite); err != nil {
		return nil, err
	}

	accountID, err := s.ruleAccountID(ctx, rule)
	if err != nil {
		return nil, err
	}
	unlock := s.locker.Lock(accountID)
	defer unlock()

	if err := hierarchy.ResyncRule(rule, time.Now()); err != nil {
		return nil, err
	}
	origin, err := s.ruleRepo.GetByID(ctx, *rule.InheritedFrom)
	if err != nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("origin rule %s no longer exists", *rule.InheritedFrom)}
	}
	rule.Name = origin.Name
	rule.Content = origin.Content

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("rule resynced", "id", rule.ID, "origin_id", origin.ID)
	return rule, nil
}

// RecordUsage bumps the counter when a rule is injected into a session.
func (s *ruleService) RecordUsage(ctx context.Context, userID, id string) error {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, rule.FolderID, models.PermissionRead); err != nil {
		return err
	}
	return s.ruleRepo.IncrementUsage(ctx, id)
}

// folderAccountID resolves the owning account of a folder for locking.
func (s *ruleService) folderAccountID(ctx context.Context, folder *models.Folder) (string, error) {
	if folder.AccountID != nil {
		return *folder.AccountID, nil
	}
	project, err := s.projectRepo.GetByID(ctx, *folder.ProjectID)
	if err != nil {
		return "", err
	}
	return project.AccountID, nil
}

func (s *ruleService) ruleAccountID(ctx context.Context, rule *models.Rule) (string, error) {
	folder, err := s.folderRepo.GetByID(ctx, rule.FolderID)
	if err != nil {
		return "", err
	}
	return s.folderAccountID(ctx, folder)
}
