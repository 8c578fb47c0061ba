package service

import (
	"context"
	"log/slog"
	"sort"

	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
	"rulebase/internal/domain/services"
	"rulebase/internal/service/hierarchy"
)

type treeService struct {
	folderRepo  repositories.FolderRepository
	ruleRepo    repositories.RuleRepository
	projectRepo repositories.ProjectRepository
	treeCache   *hierarchy.TreeCache
	authorizer  services.Authorizer
	logger      *slog.Logger
}

// NewTreeService creates a new tree service.
func NewTreeService(
	folderRepo repositories.FolderRepository,
	ruleRepo repositories.RuleRepository,
	projectRepo repositories.ProjectRepository,
	treeCache *hierarchy.TreeCache,
	authorizer services.Authorizer,
	logger *slog.Logger,
) services.TreeService {
	return &treeService{
		folderRepo:  folderRepo,
		ruleRepo:    ruleRepo,
		projectRepo: projectRepo,
		treeCache:   treeCache,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// EffectiveTree assembles what a project sees: its own folders, plus, in
// full mode, a read-only rendering of every account folder that has no copy
// in the project yet — unrepresented roots at the top level, uncopied
// children of a synced copy's origin beneath the copy. The rendering is
// computed on read so account folders created after the mode switch appear
// without a write.
func (s *treeService) EffectiveTree(ctx context.Context, userID, projectID string) (*models.TreeNode, error) {
	if err := s.authorizer.RequireAccess(ctx, userID, models.ResourceProject, projectID, models.PermissionRead); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	folders, err := s.folderRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	rules, err := s.rulesFor(ctx, folders)
	if err != nil {
		return nil, err
	}
	root := buildTree(folders, rules)

	if project.InheritanceMode != models.InheritanceFull {
		return root, nil
	}

	accountFolders, err := s.accountFolders(ctx, project.AccountID)
	if err != nil {
		return nil, err
	}
	accountTree := hierarchy.NewTree(accountFolders)

	represented := make(map[string]bool, len(folders))
	syncedCopies := make(map[string]string, len(folders)) // origin id -> copy id
	for _, f := range folders {
		if f.InheritedFrom == nil {
			continue
		}
		represented[*f.InheritedFrom] = true
		if f.SyncStatus == models.SyncSynced {
			syncedCopies[*f.InheritedFrom] = f.ID
		}
	}

	order := make(map[string]int, len(folders)+len(accountFolders))
	names := make(map[string]string, len(folders)+len(accountFolders))
	for _, f := range folders {
		order[f.ID], names[f.ID] = f.DisplayOrder, f.Name
	}
	for _, f := range accountFolders {
		order[f.ID], names[f.ID] = f.DisplayOrder, f.Name
	}

	for _, accRoot := range accountTree.Roots() {
		if represented[accRoot.ID] {
			continue
		}
		subtree, err := s.virtualSubtree(ctx, accountTree, accRoot, nil, represented)
		if err != nil {
			return nil, err
		}
		root.Folders = append(root.Folders, subtree)
	}

	// syncing materializes one folder at a time, so a synced copy's origin
	// may have account children with no copy of their own; render those
	// virtually beneath the copy, same as unrepresented roots
	nodes := indexNodes(root)
	for originID, copyID := range syncedCopies {
		node, ok := nodes[copyID]
		if !ok {
			continue
		}
		oid := originID
		merged := false
		for _, child := range accountTree.Children(&oid) {
			if represented[child.ID] {
				continue
			}
			subtree, err := s.virtualSubtree(ctx, accountTree, child, &copyID, represented)
			if err != nil {
				return nil, err
			}
			node.Folders = append(node.Folders, subtree)
			merged = true
		}
		if merged {
			sortNodes(node.Folders, order, names)
		}
	}

	sortNodes(root.Folders, order, names)
	return root, nil
}

// AccountTree returns the account-scoped tree.
func (s *treeService) AccountTree(ctx context.Context, userID, accountID string) (*models.TreeNode, error) {
	if err := s.authorizer.RequireRole(ctx, userID, accountID, models.RoleMember); err != nil {
		return nil, err
	}
	folders, err := s.accountFolders(ctx, accountID)
	if err != nil {
		return nil, err
	}
	rules, err := s.rulesFor(ctx, folders)
	if err != nil {
		return nil, err
	}
	return buildTree(folders, rules), nil
}

// accountFolders reads the account folder snapshot through the LRU cache.
func (s *treeService) accountFolders(ctx context.Context, accountID string) ([]models.Folder, error) {
	if cached, ok := s.treeCache.Get(accountID); ok {
		return cached, nil
	}
	folders, err := s.folderRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.treeCache.Put(accountID, folders)
	return folders, nil
}

func (s *treeService) rulesFor(ctx context.Context, folders []models.Folder) ([]models.Rule, error) {
	if len(folders) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(folders))
	for _, f := range folders {
		ids = append(ids, f.ID)
	}
	return s.ruleRepo.ListByFolders(ctx, ids)
}

// virtualSubtree renders one unrepresented account folder as it would look
// synced: every node read-only, inherited_from pointing at the account
// folder. Descendants that do have a project copy are skipped so content
// never appears twice. Nothing is persisted.
func (s *treeService) virtualSubtree(ctx context.Context, accountTree *hierarchy.Tree, root *models.Folder, parentID *string, represented map[string]bool) (*models.FolderTreeNode, error) {
	ids := accountTree.Closure(root.ID)
	rules, err := s.ruleRepo.ListByFolders(ctx, ids)
	if err != nil {
		return nil, err
	}
	rulesByFolder := groupRules(rules)

	var build func(f *models.Folder, parentID *string) *models.FolderTreeNode
	build = func(f *models.Folder, parentID *string) *models.FolderTreeNode {
		origin := f.ID
		node := &models.FolderTreeNode{
			ID:             f.ID,
			Name:           f.Name,
			ParentFolderID: parentID,
			SyncStatus:     models.SyncSynced,
			FolderStatus:   models.StatusReadOnly,
			InheritedFrom:  &origin,
			CreatedAt:      f.CreatedAt,
			Folders:        []*models.FolderTreeNode{},
			Rules:          ruleNodes(rulesByFolder[f.ID], models.SyncSynced),
		}
		for _, child := range accountTree.Children(&f.ID) {
			if represented[child.ID] {
				continue
			}
			node.Folders = append(node.Folders, build(child, &f.ID))
		}
		return node
	}
	return build(root, parentID), nil
}

// indexNodes flattens a built tree into an id lookup.
func indexNodes(root *models.TreeNode) map[string]*models.FolderTreeNode {
	out := make(map[string]*models.FolderTreeNode)
	var walk func(list []*models.FolderTreeNode)
	walk = func(list []*models.FolderTreeNode) {
		for _, n := range list {
			out[n.ID] = n
			walk(n.Folders)
		}
	}
	walk(root.Folders)
	return out
}

func sortNodes(list []*models.FolderTreeNode, order map[string]int, names map[string]string) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if order[a.ID] != order[b.ID] {
			return order[a.ID] < order[b.ID]
		}
		return names[a.ID] < names[b.ID]
	})
}

// buildTree assembles a nested response from flat folder and rule lists.
// First pass creates the nodes, second attaches rules, third links children
// to parents and collects the roots.
func buildTree(folders []models.Folder, rules []models.Rule) *models.TreeNode {
	nodes := make(map[string]*models.FolderTreeNode, len(folders))
	for i := range folders {
		f := &folders[i]
		nodes[f.ID] = &models.FolderTreeNode{
			ID:             f.ID,
			Name:           f.Name,
			ParentFolderID: f.ParentFolderID,
			SyncStatus:     f.SyncStatus,
			FolderStatus:   f.Status(),
			InheritedFrom:  f.InheritedFrom,
			CreatedAt:      f.CreatedAt,
			Folders:        []*models.FolderTreeNode{},
			Rules:          []models.RuleTreeNode{},
		}
	}

	for _, r := range rules {
		parent, ok := nodes[r.FolderID]
		if !ok {
			continue
		}
		parent.Rules = append(parent.Rules, models.RuleTreeNode{
			ID:         r.ID,
			Name:       r.Name,
			FolderID:   r.FolderID,
			SyncStatus: r.SyncStatus,
			UsageCount: r.UsageCount,
			UpdatedAt:  r.UpdatedAt,
		})
	}

	order := make(map[string]int, len(folders))
	names := make(map[string]string, len(folders))
	root := &models.TreeNode{Folders: []*models.FolderTreeNode{}}
	for i := range folders {
		f := &folders[i]
		order[f.ID] = f.DisplayOrder
		names[f.ID] = f.Name
		node := nodes[f.ID]
		if f.ParentFolderID == nil {
			root.Folders = append(root.Folders, node)
			continue
		}
		if parent, ok := nodes[*f.ParentFolderID]; ok {
			parent.Folders = append(parent.Folders, node)
		} else {
			// orphaned by a concurrent move; surface at the root rather
			// than dropping it
			root.Folders = append(root.Folders, node)
		}
	}

	var sortSubtree func(list []*models.FolderTreeNode)
	sortSubtree = func(list []*models.FolderTreeNode) {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if order[a.ID] != order[b.ID] {
				return order[a.ID] < order[b.ID]
			}
			return names[a.ID] < names[b.ID]
		})
		for _, n := range list {
			sortSubtree(n.Folders)
			sortRuleNodes(n.Rules)
		}
	}
	sortSubtree(root.Folders)
	return root
}

func sortRuleNodes(rules []models.RuleTreeNode) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Name < rules[j].Name
	})
}

func ruleNodes(rules []models.Rule, status models.SyncStatus) []models.RuleTreeNode {
	out := make([]models.RuleTreeNode, 0, len(rules))
	for _, r := range rules {
		out = append(out, models.RuleTreeNode{
			ID:         r.ID,
			Name:       r.Name,
			FolderID:   r.FolderID,
			SyncStatus: status,
			UsageCount: r.UsageCount,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	sortRuleNodes(out)
	return out
}

func groupRules(rules []models.Rule) map[string][]models.Rule {
	out := make(map[string][]models.Rule)
	for _, r := range rules {
		out[r.FolderID] = append(out[r.FolderID], r)
	}
	return out
}
