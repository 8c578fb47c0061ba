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

type folderService struct {
	folderRepo  repositories.FolderRepository
	ruleRepo    repositories.RuleRepository
	permRepo    repositories.PermissionRepository
	projectRepo repositories.ProjectRepository
	accountRepo repositories.AccountRepository
	txManager   repositories.TransactionManager
	locker      *hierarchy.AccountLocker
	treeCache   *hierarchy.TreeCache
	authorizer  services.Authorizer
	limits      *config.Limits
	logger      *slog.Logger
}

// NewFolderService creates a new folder service.
func NewFolderService(
	folderRepo repositories.FolderRepository,
	ruleRepo repositories.RuleRepository,
	permRepo repositories.PermissionRepository,
	projectRepo repositories.ProjectRepository,
	accountRepo repositories.AccountRepository,
	txManager repositories.TransactionManager,
	locker *hierarchy.AccountLocker,
	treeCache *hierarchy.TreeCache,
	authorizer services.Authorizer,
	limits *config.Limits,
	logger *slog.Logger,
) services.FolderService {
	return &folderService{
		folderRepo:  folderRepo,
		ruleRepo:    ruleRepo,
		permRepo:    permRepo,
		projectRepo: projectRepo,
		accountRepo: accountRepo,
		txManager:   txManager,
		locker:      locker,
		treeCache:   treeCache,
		authorizer:  authorizer,
		limits:      limits,
		logger:      logger,
	}
}

// CreateFolder creates a folder in exactly one scope. Account folders need
// the admin role; project folders need write access on the project. Synced
// folders never accept new children.
func (s *folderService) CreateFolder(ctx context.Context, req *services.CreateFolderRequest) (*models.Folder, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxFolderNameLength)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if (req.AccountID == nil) == (req.ProjectID == nil) {
		return nil, &domain.ValidationError{Message: "exactly one of account_id or project_id must be set"}
	}

	accountID, err := s.scopeAccountID(ctx, req.AccountID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if req.AccountID != nil {
		if err := s.authorizer.RequireRole(ctx, req.UserID, accountID, models.RoleAdmin); err != nil {
			return nil, err
		}
	} else {
		if err := s.authorizer.RequireAccess(ctx, req.UserID, models.ResourceProject, *req.ProjectID, models.PermissionWrite); err != nil {
			return nil, err
		}
	}

	unlock := s.locker.Lock(accountID)
	defer unlock()

	scope, err := s.loadScope(ctx, req.AccountID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if max := s.limits.For(account.Plan).MaxFoldersPerScope; len(scope) >= max {
		return nil, &domain.LimitExceededError{Resource: "folders per scope", Limit: max}
	}

	tree := hierarchy.NewTree(scope)
	if req.ParentFolderID != nil {
		parent, ok := tree.Get(*req.ParentFolderID)
		if !ok {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("parent folder %s not found in scope", *req.ParentFolderID)}
		}
		if parent.SyncStatus == models.SyncSynced {
			return nil, &domain.ReadOnlyTargetError{TargetID: parent.ID}
		}
	}
	for _, sibling := range tree.Children(req.ParentFolderID) {
		if sibling.Name == req.Name {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", req.Name),
				ResourceType: "folder",
				ResourceID:   sibling.ID,
			}
		}
	}

	now := time.Now()
	folder := &models.Folder{
		ID:                 uuid.NewString(),
		AccountID:          req.AccountID,
		ProjectID:          req.ProjectID,
		ParentFolderID:     req.ParentFolderID,
		Name:               req.Name,
		DisplayOrder:       req.DisplayOrder,
		SyncStatus:         models.SyncLocal,
		SourceOfTruth:      models.SourceProject,
		InheritPermissions: req.InheritPermissions,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.AccountID != nil {
		folder.SourceOfTruth = models.SourceAccount
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}
	if req.AccountID != nil {
		s.treeCache.Invalidate(accountID)
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"account_id", req.AccountID,
		"project_id", req.ProjectID,
		"parent_folder_id", folder.ParentFolderID,
	)
	return folder, nil
}

// GetFolder retrieves a folder with its computed path.
func (s *folderService) GetFolder(ctx context.Context, userID, id string) (*models.Folder, error) {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, id, models.PermissionRead); err != nil {
		return nil, err
	}
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	scopeAccount, scopeProject := scopeOf(folder)
	scope, err := s.loadScope(ctx, scopeAccount, scopeProject)
	if err != nil {
		return nil, err
	}
	if path, ok := hierarchy.NewTree(scope).PathTo(folder.ID); ok {
		folder.Path = path
	} else {
		s.logger.Warn("failed to compute path", "folder_id", folder.ID)
		folder.Path = folder.Name
	}
	return folder, nil
}

// ListFolders lists one scope's raw folder list.
func (s *folderService) ListFolders(ctx context.Context, userID string, accountID, projectID *string) ([]models.Folder, error) {
	if (accountID == nil) == (projectID == nil) {
		return nil, &domain.ValidationError{Message: "exactly one of account_id or project_id must be set"}
	}
	if accountID != nil {
		if err := s.authorizer.RequireRole(ctx, userID, *accountID, models.RoleMember); err != nil {
			return nil, err
		}
	} else {
		if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceProject, *projectID, models.PermissionRead); err != nil {
			return nil, err
		}
	}
	return s.loadScope(ctx, accountID, projectID)
}

// UpdateFolder renames a folder or toggles permission inheritance. Synced
// folders reject edits until detached.
func (s *folderService) UpdateFolder(ctx context.Context, userID, id string, req *services.UpdateFolderRequest) (*models.Folder, error) {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, id, models.PermissionWrite); err != nil {
		return nil, err
	}
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := hierarchy.EnsureFolderEditable(folder); err != nil {
		return nil, err
	}

	scopeAccount, scopeProject := scopeOf(folder)
	accountID, err := s.scopeAccountID(ctx, scopeAccount, scopeProject)
	if err != nil {
		return nil, err
	}
	unlock := s.locker.Lock(accountID)
	defer unlock()

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > config.MaxFolderNameLength {
			return nil, &domain.ValidationError{Message: "invalid folder name"}
		}
		scope, err := s.loadScope(ctx, scopeAccount, scopeProject)
		if err != nil {
			return nil, err
		}
		tree := hierarchy.NewTree(scope)
		for _, sibling := range tree.Children(folder.ParentFolderID) {
			if sibling.ID != folder.ID && sibling.Name == name {
				return nil, &domain.ConflictError{
					Message:      fmt.Sprintf("a folder named %q already exists in this location", name),
					ResourceType: "folder",
					ResourceID:   sibling.ID,
				}
			}
		}
		folder.Name = name
	}
	if req.InheritPermissions != nil {
		folder.InheritPermissions = *req.InheritPermissions
	}
	folder.UpdatedAt = time.Now()

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, err
	}
	if folder.IsAccountScoped() {
		s.treeCache.Invalidate(accountID)
	}
	return folder, nil
}

// MoveFolder reparents a folder and/or reorders it. With SetParent, a nil
// parent moves it to the root, which is always structurally legal; moving
// under itself or a descendant fails with CycleError; moving into a synced
// folder fails with ReadOnlyTargetError.
func (s *folderService) MoveFolder(ctx context.Context, userID, id string, req *services.MoveFolderRequest) (*models.Folder, error) {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, id, models.PermissionWrite); err != nil {
		return nil, err
	}
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	scopeAccount, scopeProject := scopeOf(folder)
	accountID, err := s.scopeAccountID(ctx, scopeAccount, scopeProject)
	if err != nil {
		return nil, err
	}
	unlock := s.locker.Lock(accountID)
	defer unlock()

	if req.SetParent {
		scope, err := s.loadScope(ctx, scopeAccount, scopeProject)
		if err != nil {
			return nil, err
		}
		tree := hierarchy.NewTree(scope)

		if req.ParentFolderID != nil {
			target, ok := tree.Get(*req.ParentFolderID)
			if !ok {
				return nil, &domain.NotFoundError{Message: fmt.Sprintf("target folder %s not found in scope", *req.ParentFolderID)}
			}
			if target.SyncStatus == models.SyncSynced {
				return nil, &domain.ReadOnlyTargetError{TargetID: target.ID}
			}
		}
		if tree.WouldCycle(folder.ID, req.ParentFolderID) {
			target := folder.ID
			if req.ParentFolderID != nil {
				target = *req.ParentFolderID
			}
			return nil, &domain.CycleError{FolderID: folder.ID, TargetID: target}
		}
		folder.ParentFolderID = req.ParentFolderID
	}
	if req.DisplayOrder != nil {
		folder.DisplayOrder = *req.DisplayOrder
	}
	folder.UpdatedAt = time.Now()

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, err
	}
	if folder.IsAccountScoped() {
		s.treeCache.Invalidate(accountID)
	}

	s.logger.Info("folder moved",
		"id", folder.ID,
		"parent_folder_id", folder.ParentFolderID,
	)
	return folder, nil
}

// DeleteFolder removes exactly the folder's descendant closure, every rule
// those folders own, and their grants, in one transaction. Deleting an
// account folder also removes its synced project copies; detached copies
// survive with the origin pointer cleared.
func (s *folderService) DeleteFolder(ctx context.Context, userID, id string) error {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, id, models.PermissionWrite); err != nil {
		return err
	}
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	scopeAccount, scopeProject := scopeOf(folder)
	accountID, err := s.scopeAccountID(ctx, scopeAccount, scopeProject)
	if err != nil {
		return err
	}
	unlock := s.locker.Lock(accountID)
	defer unlock()

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		scope, err := s.loadScope(ctx, scopeAccount, scopeProject)
		if err != nil {
			return err
		}
		closure := hierarchy.NewTree(scope).Closure(folder.ID)

		doomed := closure
		if folder.IsAccountScoped() {
			copies, err := s.folderRepo.ListCopiesOf(ctx, closure)
			if err != nil {
				return err
			}
			for i := range copies {
				c := &copies[i]
				if c.SyncStatus == models.SyncSynced {
					doomed = append(doomed, c.ID)
					continue
				}
				// detached copies own their content now; just drop the
				// pointer so a later resync cannot target a deleted origin
				c.InheritedFrom = nil
				c.UpdatedAt = time.Now()
				if err := s.folderRepo.Update(ctx, c); err != nil {
					return err
				}
			}
		}

		if err := s.ruleRepo.DeleteByFolders(ctx, doomed); err != nil {
			return err
		}
		if err := s.permRepo.DeleteByResources(ctx, models.ResourceFolder, doomed); err != nil {
			return err
		}
		return s.folderRepo.DeleteMany(ctx, doomed)
	})
	if err != nil {
		return err
	}
	if folder.IsAccountScoped() {
		s.treeCache.Invalidate(accountID)
	}

	s.logger.Info("folder deleted", "id", id, "account_id", accountID)
	return nil
}

// scopeOf splits a folder into the (accountID, projectID) pair its scope
// queries need. Synced copies carry both ids but live in their project's
// tree, so the project wins.
func scopeOf(folder *models.Folder) (*string, *string) {
	if folder.ProjectID != nil {
		return nil, folder.ProjectID
	}
	return folder.AccountID, nil
}

// loadScope fetches one scope's flat folder list.
func (s *folderService) loadScope(ctx context.Context, accountID, projectID *string) ([]models.Folder, error) {
	if projectID != nil {
		return s.folderRepo.ListByProject(ctx, *projectID)
	}
	return s.folderRepo.ListByAccount(ctx, *accountID)
}

// scopeAccountID resolves the account a scope belongs to, for locking.
func (s *folderService) scopeAccountID(ctx context.Context, accountID, projectID *string) (string, error) {
	if accountID != nil {
		return *accountID, nil
	}
	project, err := s.projectRepo.GetByID(ctx, *projectID)
	if err != nil {
		return "", err
	}
	return project.AccountID, nil
}
