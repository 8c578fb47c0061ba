package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
	"rulebase/internal/domain/services"
)

type permissionService struct {
	permRepo    repositories.PermissionRepository
	memberRepo  repositories.MembershipRepository
	groupRepo   repositories.GroupRepository
	folderRepo  repositories.FolderRepository
	projectRepo repositories.ProjectRepository
	logger      *slog.Logger
}

// NewPermissionService creates the permission service. The same value
// implements services.Authorizer for the other services.
func NewPermissionService(
	permRepo repositories.PermissionRepository,
	memberRepo repositories.MembershipRepository,
	groupRepo repositories.GroupRepository,
	folderRepo repositories.FolderRepository,
	projectRepo repositories.ProjectRepository,
	logger *slog.Logger,
) services.PermissionService {
	return &permissionService{
		permRepo:    permRepo,
		memberRepo:  memberRepo,
		groupRepo:   groupRepo,
		folderRepo:  folderRepo,
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// NewAuthorizer exposes the resolver as the Authorizer used by the other
// services.
func NewAuthorizer(
	permRepo repositories.PermissionRepository,
	memberRepo repositories.MembershipRepository,
	groupRepo repositories.GroupRepository,
	folderRepo repositories.FolderRepository,
	projectRepo repositories.ProjectRepository,
	logger *slog.Logger,
) services.Authorizer {
	return &permissionService{
		permRepo:    permRepo,
		memberRepo:  memberRepo,
		groupRepo:   groupRepo,
		folderRepo:  folderRepo,
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// roleRank orders membership roles for RequireRole comparisons.
func roleRank(r models.Role) int {
	switch r {
	case models.RoleOwner:
		return 3
	case models.RoleAdmin:
		return 2
	case models.RoleMember:
		return 1
	default:
		return 0
	}
}

// RequireRole implements services.Authorizer.
func (s *permissionService) RequireRole(ctx context.Context, userID, accountID string, min models.Role) error {
	m, err := s.memberRepo.GetByAccountAndUser(ctx, accountID, userID)
	if err != nil {
		return &domain.ForbiddenError{Message: "not a member of this account"}
	}
	if roleRank(m.Role) < roleRank(min) {
		return &domain.ForbiddenError{Message: fmt.Sprintf("requires %s role", min)}
	}
	return nil
}

// RequireAccess implements services.Authorizer.
func (s *permissionService) RequireAccess(ctx context.Context, userID string, resourceType models.ResourceType, resourceID string, min models.PermissionType) error {
	eff, err := s.Resolve(ctx, userID, resourceType, resourceID)
	if err != nil {
		return err
	}
	if eff.PermissionType.Rank() < min.Rank() {
		return &domain.ForbiddenError{Message: fmt.Sprintf("requires %s access", min)}
	}
	return nil
}

// Resolve computes the effective permission:
//  1. collect the user's groups in the resource's account;
//  2. collect explicit grants on the resource for the user and those groups;
//  3. an explicit user-level none is a hard deny; otherwise the maximum of
//     the explicit grants wins;
//  4. with no explicit grant and inherit_permissions on, recurse to the
//     parent resource (nearest ancestor with any explicit grant wins) and
//     mark the result inherited;
//  5. otherwise none. None is an answer, not an error.
func (s *permissionService) Resolve(ctx context.Context, userID string, resourceType models.ResourceType, resourceID string) (*models.EffectivePermission, error) {
	accountID, err := s.accountOf(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}

	groupIDs, err := s.groupRepo.ListGroupIDsForUser(ctx, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}

	eff := &models.EffectivePermission{
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	permType, inheritedFrom, err := s.resolveAt(ctx, userID, groupIDs, accountID, resourceType, resourceID, nil)
	if err != nil {
		return nil, err
	}
	eff.PermissionType = permType
	eff.InheritedFrom = inheritedFrom
	return eff, nil
}

// resolveAt evaluates one resource and recurses upward when nothing explicit
// is found and inheritance is enabled. inheritedVia carries the child that
// started the walk; it is nil at the resource itself.
func (s *permissionService) resolveAt(ctx context.Context, userID string, groupIDs []string, accountID string, resourceType models.ResourceType, resourceID string, inheritedVia *string) (models.PermissionType, *string, error) {
	grants, err := s.permRepo.ListForPrincipal(ctx, resourceType, resourceID, userID, groupIDs)
	if err != nil {
		return models.PermissionNone, nil, fmt.Errorf("list grants: %w", err)
	}

	if len(grants) > 0 {
		result := models.PermissionNone
		for _, g := range grants {
			// an explicit none on the user overrides every group grant
			if g.TargetType == models.TargetUser && g.PermissionType == models.PermissionNone {
				return s.markInherited(models.PermissionNone, resourceID, inheritedVia)
			}
			result = models.MaxPermission(result, g.PermissionType)
		}
		return s.markInherited(result, resourceID, inheritedVia)
	}

	// nothing explicit here: walk to the parent if the resource inherits
	switch resourceType {
	case models.ResourceFolder:
		folder, err := s.folderRepo.GetByID(ctx, resourceID)
		if err != nil {
			return models.PermissionNone, nil, err
		}
		if !folder.InheritPermissions {
			return models.PermissionNone, nil, nil
		}
		if folder.ParentFolderID != nil {
			return s.resolveAt(ctx, userID, groupIDs, accountID, models.ResourceFolder, *folder.ParentFolderID, &resourceID)
		}
		if folder.ProjectID != nil {
			return s.resolveAt(ctx, userID, groupIDs, accountID, models.ResourceProject, *folder.ProjectID, &resourceID)
		}
		// account root folder: fall through to the membership base case
		return s.membershipBase(ctx, userID, accountID, &resourceID)

	case models.ResourceProject:
		project, err := s.projectRepo.GetByID(ctx, resourceID)
		if err != nil {
			return models.PermissionNone, nil, err
		}
		if !project.InheritPermissions {
			return models.PermissionNone, nil, nil
		}
		return s.membershipBase(ctx, userID, accountID, &resourceID)

	default:
		return models.PermissionNone, nil, &domain.ValidationError{Message: "unknown resource type"}
	}
}

// membershipBase is the recursion's account-level base case: owners and
// admins resolve to admin, members to read, non-members to none.
func (s *permissionService) membershipBase(ctx context.Context, userID, accountID string, via *string) (models.PermissionType, *string, error) {
	m, err := s.memberRepo.GetByAccountAndUser(ctx, accountID, userID)
	if err != nil {
		return models.PermissionNone, nil, nil // not a member is not an error
	}
	inherited := accountID
	switch m.Role {
	case models.RoleOwner, models.RoleAdmin:
		return models.PermissionAdmin, &inherited, nil
	case models.RoleMember:
		return models.PermissionRead, &inherited, nil
	default:
		return models.PermissionNone, nil, nil
	}
}

// markInherited stamps the deciding resource onto the result when the walk
// went through at least one parent.
func (s *permissionService) markInherited(p models.PermissionType, decidedAt string, via *string) (models.PermissionType, *string, error) {
	if via == nil {
		return p, nil, nil // decided at the resource itself, not inherited
	}
	return p, &decidedAt, nil
}

// accountOf finds the account a resource ultimately belongs to.
func (s *permissionService) accountOf(ctx context.Context, resourceType models.ResourceType, resourceID string) (string, error) {
	switch resourceType {
	case models.ResourceProject:
		project, err := s.projectRepo.GetByID(ctx, resourceID)
		if err != nil {
			return "", err
		}
		return project.AccountID, nil
	case models.ResourceFolder:
		folder, err := s.folderRepo.GetByID(ctx, resourceID)
		if err != nil {
			return "", err
		}
		if folder.ProjectID != nil {
			project, err := s.projectRepo.GetByID(ctx, *folder.ProjectID)
			if err != nil {
				return "", err
			}
			return project.AccountID, nil
		}
		if folder.AccountID != nil {
			return *folder.AccountID, nil
		}
		return "", &domain.ValidationError{Message: "folder has no scope"}
	default:
		return "", &domain.ValidationError{Message: "unknown resource type"}
	}
}

// ListPermissions lists explicit grants on a resource.
func (s *permissionService) ListPermissions(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string) ([]models.Permission, error) {
	accountID, err := s.accountOf(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireRole(ctx, actorID, accountID, models.RoleMember); err != nil {
		return nil, err
	}
	return s.permRepo.ListByResource(ctx, resourceType, resourceID)
}

// Grant creates an explicit grant on a resource.
func (s *permissionService) Grant(ctx context.Context, actorID string, req *services.GrantRequest) (*models.Permission, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ResourceID, validation.Required),
		validation.Field(&req.TargetID, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if req.ResourceType != models.ResourceProject && req.ResourceType != models.ResourceFolder {
		return nil, &domain.ValidationError{Message: "resource_type must be project or folder"}
	}
	if req.TargetType != models.TargetUser && req.TargetType != models.TargetGroup {
		return nil, &domain.ValidationError{Message: "target_type must be user or group"}
	}
	if !req.PermissionType.Valid() {
		return nil, &domain.ValidationError{Message: "invalid permission_type"}
	}

	accountID, err := s.accountOf(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return nil, err
	}

	// one grant per (resource, target); a second is a conflict
	existing, err := s.permRepo.ListByResource(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.TargetType == req.TargetType && p.TargetID == req.TargetID {
			return nil, &domain.ConflictError{
				Message:      "a grant for this target already exists on this resource",
				ResourceType: "permission",
				ResourceID:   p.ID,
			}
		}
	}

	perm := &models.Permission{
		ID:             uuid.NewString(),
		ResourceType:   req.ResourceType,
		ResourceID:     req.ResourceID,
		TargetType:     req.TargetType,
		TargetID:       req.TargetID,
		PermissionType: req.PermissionType,
		GrantedBy:      actorID,
		GrantedAt:      time.Now(),
	}
	if err := s.permRepo.Create(ctx, perm); err != nil {
		return nil, err
	}

	s.logger.Info("permission granted",
		"resource_type", perm.ResourceType,
		"resource_id", perm.ResourceID,
		"target_type", perm.TargetType,
		"target_id", perm.TargetID,
		"permission_type", perm.PermissionType,
		"granted_by", actorID,
	)
	return perm, nil
}

// UpdateGrant changes a grant's permission type.
func (s *permissionService) UpdateGrant(ctx context.Context, actorID, id string, permissionType models.PermissionType) (*models.Permission, error) {
	if !permissionType.Valid() {
		return nil, &domain.ValidationError{Message: "invalid permission_type"}
	}
	perm, err := s.permRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	accountID, err := s.accountOf(ctx, perm.ResourceType, perm.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return nil, err
	}
	perm.PermissionType = permissionType
	if err := s.permRepo.Update(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// Revoke removes a grant.
func (s *permissionService) Revoke(ctx context.Context, actorID, id string) error {
	perm, err := s.permRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	accountID, err := s.accountOf(ctx, perm.ResourceType, perm.ResourceID)
	if err != nil {
		return err
	}
	if err := s.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return err
	}
	return s.permRepo.Delete(ctx, id)
}

// ToggleInherit flips a resource's inherit_permissions flag.
func (s *permissionService) ToggleInherit(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string, enabled bool) error {
	accountID, err := s.accountOf(ctx, resourceType, resourceID)
	if err != nil {
		return err
	}
	if err := s.RequireRole(ctx, actorID, accountID, models.RoleAdmin); err != nil {
		return err
	}

	switch resourceType {
	case models.ResourceProject:
		project, err := s.projectRepo.GetByID(ctx, resourceID)
		if err != nil {
			return err
		}
		project.InheritPermissions = enabled
		project.UpdatedAt = time.Now()
		return s.projectRepo.Update(ctx, project)
	case models.ResourceFolder:
		folder, err := s.folderRepo.GetByID(ctx, resourceID)
		if err != nil {
			return err
		}
		folder.InheritPermissions = enabled
		folder.UpdatedAt = time.Now()
		return s.folderRepo.Update(ctx, folder)
	default:
		return &domain.ValidationError{Message: "unknown resource type"}
	}
}
