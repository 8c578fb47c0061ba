package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
	"rulebase/internal/domain/services"
	"rulebase/internal/service/hierarchy"
)

// syncEngine holds the sync/detach/resync primitives shared by the sync
// service and the inheritance side effects of project mode changes. Callers
// hold the account lock and run inside a transaction.
type syncEngine struct {
	folderRepo repositories.FolderRepository
	ruleRepo   repositories.RuleRepository
}

// syncCopy materializes the project-side copy of an account folder and its
// rules. If the account folder's parent already has a copy in the project,
// the new copy nests under it; otherwise it lands at the project root.
func (e *syncEngine) syncCopy(ctx context.Context, src *models.Folder, projectID string, projectFolders []models.Folder, now time.Time) (*models.Folder, error) {
	var parentID *string
	if src.ParentFolderID != nil {
		for i := range projectFolders {
			pf := &projectFolders[i]
			if pf.InheritedFrom != nil && *pf.InheritedFrom == *src.ParentFolderID {
				parentID = &pf.ID
				break
			}
		}
	}

	copy := hierarchy.NewSyncedFolderCopy(src, projectID, parentID, now)
	if err := e.folderRepo.Create(ctx, copy); err != nil {
		return nil, err
	}

	rules, err := e.ruleRepo.ListByFolder(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		rc := hierarchy.NewSyncedRuleCopy(&rules[i], copy.ID, now)
		if err := e.ruleRepo.Create(ctx, rc); err != nil {
			return nil, err
		}
	}
	return copy, nil
}

// detach breaks the folder's link and the link of every synced rule in it.
// Content is already a copy, so nothing is written except the state flip.
func (e *syncEngine) detach(ctx context.Context, folder *models.Folder, now time.Time) error {
	if err := hierarchy.DetachFolder(folder, now); err != nil {
		return err
	}
	if err := e.folderRepo.Update(ctx, folder); err != nil {
		return err
	}

	rules, err := e.ruleRepo.ListByFolder(ctx, folder.ID)
	if err != nil {
		return err
	}
	for i := range rules {
		r := &rules[i]
		if r.SyncStatus != models.SyncSynced {
			continue
		}
		if err := hierarchy.DetachRule(r, now); err != nil {
			return err
		}
		if err := e.ruleRepo.Update(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// resync overwrites the detached copy with the current account originals and
// re-links it. Edits made while detached are discarded: the copy's rules
// are dropped and rebuilt from the origin.
func (e *syncEngine) resync(ctx context.Context, folder *models.Folder, now time.Time) error {
	if folder.SyncStatus != models.SyncDetached {
		return &domain.ValidationError{Message: "only a detached folder can be resynced"}
	}
	if folder.InheritedFrom == nil {
		return &domain.ValidationError{Message: "folder has no account origin to resync from"}
	}

	origin, err := e.folderRepo.GetByID(ctx, *folder.InheritedFrom)
	if err != nil {
		return &domain.NotFoundError{Message: fmt.Sprintf("account origin of folder %s no longer exists", folder.ID)}
	}

	if err := hierarchy.ResyncFolder(folder, now); err != nil {
		return err
	}
	folder.Name = origin.Name
	folder.DisplayOrder = origin.DisplayOrder
	if err := e.folderRepo.Update(ctx, folder); err != nil {
		return err
	}

	if err := e.ruleRepo.DeleteByFolders(ctx, []string{folder.ID}); err != nil {
		return err
	}
	originRules, err := e.ruleRepo.ListByFolder(ctx, origin.ID)
	if err != nil {
		return err
	}
	for i := range originRules {
		rc := hierarchy.NewSyncedRuleCopy(&originRules[i], folder.ID, now)
		if err := e.ruleRepo.Create(ctx, rc); err != nil {
			return err
		}
	}
	return nil
}

type syncService struct {
	engine      syncEngine
	folderRepo  repositories.FolderRepository
	projectRepo repositories.ProjectRepository
	txManager   repositories.TransactionManager
	locker      *hierarchy.AccountLocker
	authorizer  services.Authorizer
	logger      *slog.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(
	folderRepo repositories.FolderRepository,
	ruleRepo repositories.RuleRepository,
	projectRepo repositories.ProjectRepository,
	txManager repositories.TransactionManager,
	locker *hierarchy.AccountLocker,
	authorizer services.Authorizer,
	logger *slog.Logger,
) services.SyncService {
	return &syncService{
		engine:      syncEngine{folderRepo: folderRepo, ruleRepo: ruleRepo},
		folderRepo:  folderRepo,
		projectRepo: projectRepo,
		txManager:   txManager,
		locker:      locker,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// SyncFolder links an account folder into a project as a read-only copy.
func (s *syncService) SyncFolder(ctx context.Context, userID, accountFolderID, projectID string) (*models.Folder, error) {
	src, err := s.folderRepo.GetByID(ctx, accountFolderID)
	if err != nil {
		return nil, err
	}
	if !src.IsAccountScoped() {
		return nil, &domain.ValidationError{Message: "only account folders can be synced into a project"}
	}

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if src.AccountID == nil || *src.AccountID != project.AccountID {
		return nil, &domain.ValidationError{Message: "folder and project belong to different accounts"}
	}
	if project.InheritanceMode == models.InheritanceNone {
		return nil, &domain.ValidationError{Message: "project does not inherit account folders"}
	}

	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceProject, projectID, models.PermissionWrite); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(project.AccountID)
	defer unlock()

	// a copy in either link state blocks a second sync of the same pair:
	// synced means it is already there, detached means resync is the
	// intended operation
	if existing, err := s.folderRepo.GetSyncedCopy(ctx, accountFolderID, projectID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &domain.AlreadySyncedError{
			AccountFolderID: accountFolderID,
			ProjectID:       projectID,
			ExistingID:      existing.ID,
		}
	}

	var copy *models.Folder
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		projectFolders, err := s.folderRepo.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		copy, err = s.engine.syncCopy(ctx, src, projectID, projectFolders, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder synced",
		"account_folder_id", accountFolderID,
		"project_id", projectID,
		"copy_id", copy.ID,
	)
	return copy, nil
}

// DetachFolder breaks a synced project folder's link.
func (s *syncService) DetachFolder(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	folder, accountID, err := s.projectFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, folderID, models.PermissionWrite); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(accountID)
	defer unlock()

	if folder.SyncStatus != models.SyncSynced {
		return nil, &domain.ValidationError{Message: "only a synced folder can be detached"}
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		return s.engine.detach(ctx, folder, time.Now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder detached", "folder_id", folderID, "project_id", *folder.ProjectID)
	return folder, nil
}

// ResyncFolder restores the account originals into a detached folder and
// re-links it. Destructive to detached edits; the HTTP layer requires the
// caller to confirm.
func (s *syncService) ResyncFolder(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	folder, accountID, err := s.projectFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceFolder, folderID, models.PermissionWrite); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(accountID)
	defer unlock()

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		return s.engine.resync(ctx, folder, time.Now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder resynced", "folder_id", folderID, "origin_id", *folder.InheritedFrom)
	return folder, nil
}

// projectFolder loads a folder that must be project-scoped and returns the
// owning account id for locking.
func (s *syncService) projectFolder(ctx context.Context, folderID string) (*models.Folder, string, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, "", err
	}
	if folder.ProjectID == nil {
		return nil, "", &domain.ValidationError{Message: "folder is not project-scoped"}
	}
	project, err := s.projectRepo.GetByID(ctx, *folder.ProjectID)
	if err != nil {
		return nil, "", err
	}
	return folder, project.AccountID, nil
}
