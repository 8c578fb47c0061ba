package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"

	"rulebase/internal/config"
	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
	"rulebase/internal/domain/services"
	"rulebase/internal/service/hierarchy"
)

// memStore backs the in-memory repository fakes. Everything is stored by
// value; repositories hand out copies so tests never mutate state through
// a returned pointer by accident.
type memStore struct {
	accounts      map[string]models.Account
	members       map[string]models.Membership // keyed by membership id
	groups        map[string]models.Group
	groupMembers  map[string]map[string]bool // group id -> user ids
	accountGroups map[string]map[string]bool // account id -> group ids
	projects      map[string]models.Project
	folders       map[string]models.Folder
	rules         map[string]models.Rule
	perms         map[string]models.Permission
}

func newMemStore() *memStore {
	return &memStore{
		accounts:      make(map[string]models.Account),
		members:       make(map[string]models.Membership),
		groups:        make(map[string]models.Group),
		groupMembers:  make(map[string]map[string]bool),
		accountGroups: make(map[string]map[string]bool),
		projects:      make(map[string]models.Project),
		folders:       make(map[string]models.Folder),
		rules:         make(map[string]models.Rule),
		perms:         make(map[string]models.Permission),
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

// memTxManager runs the function directly; rollback semantics are not
// simulated, the tests assert on end states of successful paths.
type memTxManager struct{}

func (memTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type memAccountRepo struct{ s *memStore }

func (r *memAccountRepo) Create(_ context.Context, a *models.Account) error {
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id string) (*models.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	out := a
	return &out, nil
}

func (r *memAccountRepo) Update(_ context.Context, a *models.Account) error {
	if _, ok := r.s.accounts[a.ID]; !ok {
		return notFound("account", a.ID)
	}
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *memAccountRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.accounts[id]; !ok {
		return notFound("account", id)
	}
	delete(r.s.accounts, id)
	for mid, m := range r.s.members {
		if m.AccountID == id {
			delete(r.s.members, mid)
		}
	}
	return nil
}

func (r *memAccountRepo) ListByUser(_ context.Context, userID string) ([]models.Account, error) {
	out := []models.Account{}
	for _, m := range r.s.members {
		if m.UserID != userID {
			continue
		}
		if a, ok := r.s.accounts[m.AccountID]; ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memMembershipRepo struct{ s *memStore }

func (r *memMembershipRepo) Create(_ context.Context, m *models.Membership) error {
	r.s.members[m.ID] = *m
	return nil
}

func (r *memMembershipRepo) GetByAccountAndUser(_ context.Context, accountID, userID string) (*models.Membership, error) {
	for _, m := range r.s.members {
		if m.AccountID == accountID && m.UserID == userID {
			out := m
			return &out, nil
		}
	}
	return nil, notFound("membership", accountID+"/"+userID)
}

func (r *memMembershipRepo) ListByAccount(_ context.Context, accountID string) ([]models.Membership, error) {
	out := []models.Membership{}
	for _, m := range r.s.members {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memMembershipRepo) UpdateRole(_ context.Context, accountID, userID string, role models.Role) error {
	for id, m := range r.s.members {
		if m.AccountID == accountID && m.UserID == userID {
			m.Role = role
			r.s.members[id] = m
			return nil
		}
	}
	return notFound("membership", accountID+"/"+userID)
}

func (r *memMembershipRepo) Delete(_ context.Context, accountID, userID string) error {
	for id, m := range r.s.members {
		if m.AccountID == accountID && m.UserID == userID {
			delete(r.s.members, id)
			return nil
		}
	}
	return notFound("membership", accountID+"/"+userID)
}

func (r *memMembershipRepo) CountOwners(_ context.Context, accountID string) (int, error) {
	n := 0
	for _, m := range r.s.members {
		if m.AccountID == accountID && m.Role == models.RoleOwner {
			n++
		}
	}
	return n, nil
}

func (r *memMembershipRepo) CountOwnedBy(_ context.Context, userID string) (int, error) {
	n := 0
	for _, m := range r.s.members {
		if m.UserID == userID && m.Role == models.RoleOwner {
			n++
		}
	}
	return n, nil
}

type memGroupRepo struct{ s *memStore }

func (r *memGroupRepo) Create(_ context.Context, g *models.Group) error {
	r.s.groups[g.ID] = *g
	return nil
}

func (r *memGroupRepo) GetByID(_ context.Context, id string) (*models.Group, error) {
	g, ok := r.s.groups[id]
	if !ok {
		return nil, notFound("group", id)
	}
	out := g
	return &out, nil
}

func (r *memGroupRepo) Update(_ context.Context, g *models.Group) error {
	if _, ok := r.s.groups[g.ID]; !ok {
		return notFound("group", g.ID)
	}
	r.s.groups[g.ID] = *g
	return nil
}

func (r *memGroupRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.groups[id]; !ok {
		return notFound("group", id)
	}
	delete(r.s.groups, id)
	delete(r.s.groupMembers, id)
	for _, groups := range r.s.accountGroups {
		delete(groups, id)
	}
	return nil
}

func (r *memGroupRepo) ListByAccount(_ context.Context, accountID string) ([]models.Group, error) {
	out := []models.Group{}
	for gid := range r.s.accountGroups[accountID] {
		if g, ok := r.s.groups[gid]; ok {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memGroupRepo) Associate(_ context.Context, accountID, groupID string) error {
	if r.s.accountGroups[accountID] == nil {
		r.s.accountGroups[accountID] = make(map[string]bool)
	}
	if r.s.accountGroups[accountID][groupID] {
		return &domain.ConflictError{Message: "group already associated", ResourceType: "group", ResourceID: groupID}
	}
	r.s.accountGroups[accountID][groupID] = true
	return nil
}

func (r *memGroupRepo) Unlink(_ context.Context, accountID, groupID string) error {
	if !r.s.accountGroups[accountID][groupID] {
		return notFound("account group", groupID)
	}
	delete(r.s.accountGroups[accountID], groupID)
	return nil
}

func (r *memGroupRepo) AddMember(_ context.Context, groupID, userID string) error {
	if r.s.groupMembers[groupID] == nil {
		r.s.groupMembers[groupID] = make(map[string]bool)
	}
	r.s.groupMembers[groupID][userID] = true
	return nil
}

func (r *memGroupRepo) RemoveMember(_ context.Context, groupID, userID string) error {
	delete(r.s.groupMembers[groupID], userID)
	return nil
}

func (r *memGroupRepo) ListMemberIDs(_ context.Context, groupID string) ([]string, error) {
	out := []string{}
	for uid := range r.s.groupMembers[groupID] {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

func (r *memGroupRepo) ListAccountIDs(_ context.Context, groupID string) ([]string, error) {
	out := []string{}
	for aid, groups := range r.s.accountGroups {
		if groups[groupID] {
			out = append(out, aid)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memGroupRepo) ListGroupIDsForUser(_ context.Context, accountID, userID string) ([]string, error) {
	out := []string{}
	for gid := range r.s.accountGroups[accountID] {
		if r.s.groupMembers[gid][userID] {
			out = append(out, gid)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memProjectRepo struct{ s *memStore }

func (r *memProjectRepo) Create(_ context.Context, p *models.Project) error {
	r.s.projects[p.ID] = *p
	return nil
}

func (r *memProjectRepo) GetByID(_ context.Context, id string) (*models.Project, error) {
	p, ok := r.s.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	out := p
	return &out, nil
}

func (r *memProjectRepo) Update(_ context.Context, p *models.Project) error {
	if _, ok := r.s.projects[p.ID]; !ok {
		return notFound("project", p.ID)
	}
	r.s.projects[p.ID] = *p
	return nil
}

func (r *memProjectRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.projects[id]; !ok {
		return notFound("project", id)
	}
	delete(r.s.projects, id)
	return nil
}

func (r *memProjectRepo) ListByAccount(_ context.Context, accountID string) ([]models.Project, error) {
	out := []models.Project{}
	for _, p := range r.s.projects {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memProjectRepo) CountByAccount(_ context.Context, accountID string) (int, error) {
	n := 0
	for _, p := range r.s.projects {
		if p.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

type memFolderRepo struct{ s *memStore }

func (r *memFolderRepo) Create(_ context.Context, f *models.Folder) error {
	r.s.folders[f.ID] = *f
	return nil
}

func (r *memFolderRepo) GetByID(_ context.Context, id string) (*models.Folder, error) {
	f, ok := r.s.folders[id]
	if !ok {
		return nil, notFound("folder", id)
	}
	out := f
	return &out, nil
}

func (r *memFolderRepo) Update(_ context.Context, f *models.Folder) error {
	if _, ok := r.s.folders[f.ID]; !ok {
		return notFound("folder", f.ID)
	}
	r.s.folders[f.ID] = *f
	return nil
}

func (r *memFolderRepo) DeleteMany(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(r.s.folders, id)
	}
	return nil
}

func (r *memFolderRepo) ListByAccount(_ context.Context, accountID string) ([]models.Folder, error) {
	out := []models.Folder{}
	for _, f := range r.s.folders {
		if f.ProjectID == nil && f.AccountID != nil && *f.AccountID == accountID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memFolderRepo) ListByProject(_ context.Context, projectID string) ([]models.Folder, error) {
	out := []models.Folder{}
	for _, f := range r.s.folders {
		if f.ProjectID != nil && *f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memFolderRepo) GetSyncedCopy(_ context.Context, accountFolderID, projectID string) (*models.Folder, error) {
	for _, f := range r.s.folders {
		if f.ProjectID != nil && *f.ProjectID == projectID &&
			f.InheritedFrom != nil && *f.InheritedFrom == accountFolderID {
			out := f
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memFolderRepo) ListCopiesOf(_ context.Context, accountFolderIDs []string) ([]models.Folder, error) {
	origins := make(map[string]bool, len(accountFolderIDs))
	for _, id := range accountFolderIDs {
		origins[id] = true
	}
	out := []models.Folder{}
	for _, f := range r.s.folders {
		if f.InheritedFrom != nil && origins[*f.InheritedFrom] {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memRuleRepo struct{ s *memStore }

func (r *memRuleRepo) Create(_ context.Context, rule *models.Rule) error {
	r.s.rules[rule.ID] = *rule
	return nil
}

func (r *memRuleRepo) GetByID(_ context.Context, id string) (*models.Rule, error) {
	rule, ok := r.s.rules[id]
	if !ok {
		return nil, notFound("rule", id)
	}
	out := rule
	return &out, nil
}

func (r *memRuleRepo) Update(_ context.Context, rule *models.Rule) error {
	if _, ok := r.s.rules[rule.ID]; !ok {
		return notFound("rule", rule.ID)
	}
	r.s.rules[rule.ID] = *rule
	return nil
}

func (r *memRuleRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.rules[id]; !ok {
		return notFound("rule", id)
	}
	delete(r.s.rules, id)
	return nil
}

func (r *memRuleRepo) ListByFolder(_ context.Context, folderID string) ([]models.Rule, error) {
	out := []models.Rule{}
	for _, rule := range r.s.rules {
		if rule.FolderID == folderID {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRuleRepo) ListByFolders(_ context.Context, folderIDs []string) ([]models.Rule, error) {
	ids := make(map[string]bool, len(folderIDs))
	for _, id := range folderIDs {
		ids[id] = true
	}
	out := []models.Rule{}
	for _, rule := range r.s.rules {
		if ids[rule.FolderID] {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRuleRepo) DeleteByFolders(_ context.Context, folderIDs []string) error {
	ids := make(map[string]bool, len(folderIDs))
	for _, id := range folderIDs {
		ids[id] = true
	}
	for rid, rule := range r.s.rules {
		if ids[rule.FolderID] {
			delete(r.s.rules, rid)
		}
	}
	return nil
}

func (r *memRuleRepo) IncrementUsage(_ context.Context, id string) error {
	rule, ok := r.s.rules[id]
	if !ok {
		return notFound("rule", id)
	}
	rule.UsageCount++
	r.s.rules[id] = rule
	return nil
}

type memPermissionRepo struct{ s *memStore }

func (r *memPermissionRepo) Create(_ context.Context, p *models.Permission) error {
	r.s.perms[p.ID] = *p
	return nil
}

func (r *memPermissionRepo) GetByID(_ context.Context, id string) (*models.Permission, error) {
	p, ok := r.s.perms[id]
	if !ok {
		return nil, notFound("permission", id)
	}
	out := p
	return &out, nil
}

func (r *memPermissionRepo) Update(_ context.Context, p *models.Permission) error {
	if _, ok := r.s.perms[p.ID]; !ok {
		return notFound("permission", p.ID)
	}
	r.s.perms[p.ID] = *p
	return nil
}

func (r *memPermissionRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.perms[id]; !ok {
		return notFound("permission", id)
	}
	delete(r.s.perms, id)
	return nil
}

func (r *memPermissionRepo) ListByResource(_ context.Context, resourceType models.ResourceType, resourceID string) ([]models.Permission, error) {
	out := []models.Permission{}
	for _, p := range r.s.perms {
		if p.ResourceType == resourceType && p.ResourceID == resourceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memPermissionRepo) ListForPrincipal(_ context.Context, resourceType models.ResourceType, resourceID, userID string, groupIDs []string) ([]models.Permission, error) {
	groups := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		groups[id] = true
	}
	out := []models.Permission{}
	for _, p := range r.s.perms {
		if p.ResourceType != resourceType || p.ResourceID != resourceID {
			continue
		}
		if p.TargetType == models.TargetUser && p.TargetID == userID {
			out = append(out, p)
		}
		if p.TargetType == models.TargetGroup && groups[p.TargetID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memPermissionRepo) DeleteByResources(_ context.Context, resourceType models.ResourceType, resourceIDs []string) error {
	ids := make(map[string]bool, len(resourceIDs))
	for _, id := range resourceIDs {
		ids[id] = true
	}
	for pid, p := range r.s.perms {
		if p.ResourceType == resourceType && ids[p.ResourceID] {
			delete(r.s.perms, pid)
		}
	}
	return nil
}

// fixture wires every service over one shared in-memory store, the way
// main.go wires them over postgres.
type fixture struct {
	store       *memStore
	folderRepo  *memFolderRepo
	ruleRepo    *memRuleRepo
	permRepo    *memPermissionRepo
	accounts    services.AccountService
	memberships services.MembershipService
	groups      services.GroupService
	projects    services.ProjectService
	folders     services.FolderService
	rules       services.RuleService
	sync        services.SyncService
	trees       services.TreeService
	perms       services.PermissionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	accountRepo := &memAccountRepo{s: store}
	memberRepo := &memMembershipRepo{s: store}
	groupRepo := &memGroupRepo{s: store}
	projectRepo := &memProjectRepo{s: store}
	folderRepo := &memFolderRepo{s: store}
	ruleRepo := &memRuleRepo{s: store}
	permRepo := &memPermissionRepo{s: store}
	txManager := memTxManager{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limits, err := config.LoadLimits()
	if err != nil {
		t.Fatalf("LoadLimits: %v", err)
	}
	locker := hierarchy.NewAccountLocker()
	treeCache, err := hierarchy.NewTreeCache(16)
	if err != nil {
		t.Fatalf("NewTreeCache: %v", err)
	}

	authorizer := NewAuthorizer(permRepo, memberRepo, groupRepo, folderRepo, projectRepo, logger)

	return &fixture{
		store:       store,
		folderRepo:  folderRepo,
		ruleRepo:    ruleRepo,
		permRepo:    permRepo,
		accounts:    NewAccountService(accountRepo, memberRepo, txManager, authorizer, logger),
		memberships: NewMembershipService(memberRepo, authorizer, logger),
		groups:      NewGroupService(groupRepo, accountRepo, txManager, authorizer, limits, logger),
		projects:    NewProjectService(projectRepo, folderRepo, ruleRepo, permRepo, accountRepo, txManager, locker, authorizer, limits, logger),
		folders:     NewFolderService(folderRepo, ruleRepo, permRepo, projectRepo, accountRepo, txManager, locker, treeCache, authorizer, limits, logger),
		rules:       NewRuleService(ruleRepo, folderRepo, projectRepo, accountRepo, txManager, locker, authorizer, limits, logger),
		sync:        NewSyncService(folderRepo, ruleRepo, projectRepo, txManager, locker, authorizer, logger),
		trees:       NewTreeService(folderRepo, ruleRepo, projectRepo, treeCache, authorizer, logger),
		perms:       NewPermissionService(permRepo, memberRepo, groupRepo, folderRepo, projectRepo, logger),
	}
}

// mustAccount creates an account owned by the given user.
func (f *fixture) mustAccount(t *testing.T, owner, slug string) *models.Account {
	t.Helper()
	account, err := f.accounts.CreateAccount(context.Background(), &services.CreateAccountRequest{
		UserID: owner,
		Name:   slug,
		Slug:   slug,
	})
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", slug, err)
	}
	return account
}

// mustAccountFolder creates an account-scoped folder.
func (f *fixture) mustAccountFolder(t *testing.T, userID, accountID, name string, parentID *string) *models.Folder {
	t.Helper()
	folder, err := f.folders.CreateFolder(context.Background(), &services.CreateFolderRequest{
		UserID:             userID,
		AccountID:          &accountID,
		ParentFolderID:     parentID,
		Name:               name,
		InheritPermissions: true,
	})
	if err != nil {
		t.Fatalf("CreateFolder(%s): %v", name, err)
	}
	return folder
}

// mustProjectFolder creates a project-scoped folder.
func (f *fixture) mustProjectFolder(t *testing.T, userID, projectID, name string, parentID *string) *models.Folder {
	t.Helper()
	folder, err := f.folders.CreateFolder(context.Background(), &services.CreateFolderRequest{
		UserID:             userID,
		ProjectID:          &projectID,
		ParentFolderID:     parentID,
		Name:               name,
		InheritPermissions: true,
	})
	if err != nil {
		t.Fatalf("CreateFolder(%s): %v", name, err)
	}
	return folder
}

// mustProject creates a project in the given mode ("" = default partial).
func (f *fixture) mustProject(t *testing.T, userID, accountID, slug string, mode models.InheritanceMode) *models.Project {
	t.Helper()
	project, err := f.projects.CreateProject(context.Background(), &services.CreateProjectRequest{
		UserID:          userID,
		AccountID:       accountID,
		Name:            slug,
		Slug:            slug,
		InheritanceMode: string(mode),
	})
	if err != nil {
		t.Fatalf("CreateProject(%s): %v", slug, err)
	}
	return project
}

// mustRule creates a rule in a folder.
func (f *fixture) mustRule(t *testing.T, userID, folderID, name, content string) *models.Rule {
	t.Helper()
	rule, err := f.rules.CreateRule(context.Background(), &services.CreateRuleRequest{
		UserID:   userID,
		FolderID: folderID,
		Name:     name,
		Content:  content,
	})
	if err != nil {
		t.Fatalf("CreateRule(%s): %v", name, err)
	}
	return rule
}
