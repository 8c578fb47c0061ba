package service

import (
	"context"
	"fmt"
	"log/slog"
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

type projectService struct {
	engine      syncEngine
	projectRepo repositories.ProjectRepository
	folderRepo  repositories.FolderRepository
	ruleRepo    repositories.RuleRepository
	permRepo    repositories.PermissionRepository
	accountRepo repositories.AccountRepository
	txManager   repositories.TransactionManager
	locker      *hierarchy.AccountLocker
	authorizer  services.Authorizer
	limits      *config.Limits
	logger      *slog.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	folderRepo repositories.FolderRepository,
	ruleRepo repositories.RuleRepository,
	permRepo repositories.PermissionRepository,
	accountRepo repositories.AccountRepository,
	txManager repositories.TransactionManager,
	locker *hierarchy.AccountLocker,
	authorizer services.Authorizer,
	limits *config.Limits,
	logger *slog.Logger,
) services.ProjectService {
	return &projectService{
		engine:      syncEngine{folderRepo: folderRepo, ruleRepo: ruleRepo},
		projectRepo: projectRepo,
		folderRepo:  folderRepo,
		ruleRepo:    ruleRepo,
		permRepo:    permRepo,
		accountRepo: accountRepo,
		txManager:   txManager,
		locker:      locker,
		authorizer:  authorizer,
		limits:      limits,
		logger:      logger,
	}
}

// CreateProject creates a project. A project created in full mode gets the
// account's root folders synced immediately, as if the mode had just been
// entered.
func (s *projectService) CreateProject(ctx context.Context, req *services.CreateProjectRequest) (*models.Project, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.AccountID, validation.Required),
		validation.Field(&req.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.Slug, validation.Required, validation.Match(slugPattern)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	mode := models.InheritancePartial
	if req.InheritanceMode != "" {
		mode = models.InheritanceMode(req.InheritanceMode)
		if !mode.Valid() {
			return nil, &domain.ValidationError{Message: "inheritance_mode must be full, partial or none"}
		}
	}

	if err := s.authorizer.RequireRole(ctx, req.UserID, req.AccountID, models.RoleAdmin); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	count, err := s.projectRepo.CountByAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if max := s.limits.For(account.Plan).MaxProjectsPerAccount; count >= max {
		return nil, &domain.LimitExceededError{Resource: "projects per account", Limit: max}
	}

	now := time.Now()
	project := &models.Project{
		ID:                 uuid.NewString(),
		AccountID:          req.AccountID,
		Name:               req.Name,
		Slug:               req.Slug,
		InheritanceMode:    mode,
		InheritPermissions: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	unlock := s.locker.Lock(req.AccountID)
	defer unlock()

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.projectRepo.Create(ctx, project); err != nil {
			return err
		}
		if mode == models.InheritanceFull {
			return s.syncUnrepresentedRoots(ctx, project)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"account_id", project.AccountID,
		"inheritance_mode", project.InheritanceMode,
	)
	return project, nil
}

// GetProject retrieves a project.
func (s *projectService) GetProject(ctx context.Context, userID, id string) (*models.Project, error) {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceProject, id, models.PermissionRead); err != nil {
		return nil, err
	}
	return s.projectRepo.GetByID(ctx, id)
}

// ListProjects lists an account's projects.
func (s *projectService) ListProjects(ctx context.Context, userID, accountID string) ([]models.Project, error) {
	if err := s.authorizer.RequireRole(ctx, userID, accountID, models.RoleMember); err != nil {
		return nil, err
	}
	return s.projectRepo.ListByAccount(ctx, accountID)
}

// UpdateProject updates a project. Changing the inheritance mode runs the
// sync/detach side effects synchronously inside the same transaction:
// entering full syncs every unrepresented account root folder, entering
// none detaches every synced folder. Entering none with synced folders
// present requires confirm_detach; the SyncImpact preview carries the count.
func (s *projectService) UpdateProject(ctx context.Context, userID, id string, req *services.UpdateProjectRequest) (*models.Project, error) {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceProject, id, models.PermissionAdmin); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, &domain.ValidationError{Message: "name cannot be empty"}
		}
		project.Name = *req.Name
	}
	if req.Slug != nil {
		if !slugPattern.MatchString(*req.Slug) {
			return nil, &domain.ValidationError{Message: "invalid slug"}
		}
		project.Slug = *req.Slug
	}
	if req.InheritPermissions != nil {
		project.InheritPermissions = *req.InheritPermissions
	}

	var newMode *models.InheritanceMode
	if req.InheritanceMode != nil {
		mode := models.InheritanceMode(*req.InheritanceMode)
		if !mode.Valid() {
			return nil, &domain.ValidationError{Message: "inheritance_mode must be full, partial or none"}
		}
		if mode != project.InheritanceMode {
			newMode = &mode
		}
	}

	unlock := s.locker.Lock(project.AccountID)
	defer unlock()

	if newMode != nil && *newMode == models.InheritanceNone && !req.ConfirmDetach {
		synced, err := s.syncedFolders(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		if len(synced) > 0 {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("switching to none will detach %d synced folder(s); set confirm_detach to proceed", len(synced)),
				ResourceType: "project",
				ResourceID:   project.ID,
			}
		}
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if newMode != nil {
			project.InheritanceMode = *newMode
		}
		project.UpdatedAt = time.Now()
		if err := s.projectRepo.Update(ctx, project); err != nil {
			return err
		}
		if newMode == nil {
			return nil
		}
		switch *newMode {
		case models.InheritanceFull:
			return s.syncUnrepresentedRoots(ctx, project)
		case models.InheritanceNone:
			return s.detachAllSynced(ctx, project.ID)
		default:
			// partial keeps existing synced/detached folders untouched
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project updated", "id", project.ID, "inheritance_mode", project.InheritanceMode)
	return project, nil
}

// DeleteProject deletes a project with its folder tree, rules and grants.
func (s *projectService) DeleteProject(ctx context.Context, userID, id string) error {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceProject, id, models.PermissionAdmin); err != nil {
		return err
	}
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locker.Lock(project.AccountID)
	defer unlock()

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folders, err := s.folderRepo.ListByProject(ctx, id)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(folders))
		for _, f := range folders {
			ids = append(ids, f.ID)
		}
		if len(ids) > 0 {
			if err := s.ruleRepo.DeleteByFolders(ctx, ids); err != nil {
				return err
			}
			if err := s.permRepo.DeleteByResources(ctx, models.ResourceFolder, ids); err != nil {
				return err
			}
			if err := s.folderRepo.DeleteMany(ctx, ids); err != nil {
				return err
			}
		}
		if err := s.permRepo.DeleteByResources(ctx, models.ResourceProject, []string{id}); err != nil {
			return err
		}
		return s.projectRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("project deleted", "id", id, "account_id", project.AccountID)
	return nil
}

// SyncImpact previews a mode change: how many folders a switch to none
// would detach, or how many account roots a switch to full would sync.
func (s *projectService) SyncImpact(ctx context.Context, userID, id string, mode models.InheritanceMode) (*services.SyncImpact, error) {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceProject, id, models.PermissionRead); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, &domain.ValidationError{Message: "inheritance_mode must be full, partial or none"}
	}
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	impact := &services.SyncImpact{ProjectID: id, Mode: mode}
	switch mode {
	case models.InheritanceNone:
		synced, err := s.syncedFolders(ctx, id)
		if err != nil {
			return nil, err
		}
		impact.DetachCount = len(synced)
		impact.NeedsConfirm = impact.DetachCount > 0
	case models.InheritanceFull:
		roots, err := s.unrepresentedRoots(ctx, project)
		if err != nil {
			return nil, err
		}
		impact.SyncCount = len(roots)
	}
	return impact, nil
}

// syncUnrepresentedRoots syncs every account root folder that has no copy
// in the project yet. Running it twice is a no-op, which makes entering
// full idempotent.
func (s *projectService) syncUnrepresentedRoots(ctx context.Context, project *models.Project) error {
	roots, err := s.unrepresentedRoots(ctx, project)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		return nil
	}
	projectFolders, err := s.folderRepo.ListByProject(ctx, project.ID)
	if err != nil {
		return err
	}
	now := time.Now()
	for i := range roots {
		if _, err := s.engine.syncCopy(ctx, roots[i], project.ID, projectFolders, now); err != nil {
			return err
		}
	}
	s.logger.Info("account roots synced", "project_id", project.ID, "count", len(roots))
	return nil
}

// unrepresentedRoots lists account root folders with no project copy in any
// link state.
func (s *projectService) unrepresentedRoots(ctx context.Context, project *models.Project) ([]*models.Folder, error) {
	accountFolders, err := s.folderRepo.ListByAccount(ctx, project.AccountID)
	if err != nil {
		return nil, err
	}
	projectFolders, err := s.folderRepo.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	represented := make(map[string]bool, len(projectFolders))
	for _, pf := range projectFolders {
		if pf.InheritedFrom != nil {
			represented[*pf.InheritedFrom] = true
		}
	}

	var roots []*models.Folder
	for i := range accountFolders {
		f := &accountFolders[i]
		if f.ParentFolderID == nil && !represented[f.ID] {
			roots = append(roots, f)
		}
	}
	return roots, nil
}

// syncedFolders lists the project's folders currently in the synced state.
func (s *projectService) syncedFolders(ctx context.Context, projectID string) ([]models.Folder, error) {
	folders, err := s.folderRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var synced []models.Folder
	for _, f := range folders {
		if f.SyncStatus == models.SyncSynced {
			synced = append(synced, f)
		}
	}
	return synced, nil
}

// detachAllSynced detaches every synced folder; content is preserved, never
// deleted. This is the none-mode transition.
func (s *projectService) detachAllSynced(ctx context.Context, projectID string) error {
	synced, err := s.syncedFolders(ctx, projectID)
	if err != nil {
		return err
	}
	now := time.Now()
	for i := range synced {
		if err := s.engine.detach(ctx, &synced[i], now); err != nil {
			return err
		}
	}
	if len(synced) > 0 {
		s.logger.Info("synced folders detached", "project_id", projectID, "count", len(synced))
	}
	return nil
}
