package service

import (
	"context"
	"errors"
	"testing"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/services"
)

func strp(s string) *string { return &s }

func (f *fixture) projectFoldersByStatus(t *testing.T, projectID string) map[models.SyncStatus]int {
	t.Helper()
	folders, err := f.folderRepo.ListByProject(context.Background(), projectID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	out := make(map[models.SyncStatus]int)
	for _, folder := range folders {
		out[folder.SyncStatus]++
	}
	return out
}

func TestCreateProjectFullModeSyncsRoots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	standards := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	f.mustAccountFolder(t, ownerID, account.ID, "playbooks", nil)
	f.mustRule(t, ownerID, standards.ID, "review", "check error paths first")

	project := f.mustProject(t, ownerID, account.ID, "platform", models.InheritanceFull)

	byStatus := f.projectFoldersByStatus(t, project.ID)
	if byStatus[models.SyncSynced] != 2 {
		t.Fatalf("got %d synced folders, want 2", byStatus[models.SyncSynced])
	}

	copies, err := f.folderRepo.ListByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	for _, c := range copies {
		if c.InheritedFrom == nil {
			t.Errorf("synced copy %s has no origin pointer", c.Name)
		}
		if c.Status() != models.StatusReadOnly {
			t.Errorf("synced copy %s should be read-only", c.Name)
		}
		if c.InheritedFrom != nil && *c.InheritedFrom == standards.ID {
			rules, err := f.ruleRepo.ListByFolder(ctx, c.ID)
			if err != nil {
				t.Fatalf("ListByFolder: %v", err)
			}
			if len(rules) != 1 || rules[0].Content != "check error paths first" {
				t.Errorf("standards copy should carry the rule content, got %v", rules)
			}
		}
	}
}

func TestEnterFullModeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	project := f.mustProject(t, ownerID, account.ID, "platform", "")

	full := string(models.InheritanceFull)
	for i := 0; i < 2; i++ {
		// leave and re-enter full; already-represented roots must not be
		// copied again
		if i > 0 {
			if _, err := f.projects.UpdateProject(ctx, ownerID, project.ID, &services.UpdateProjectRequest{
				InheritanceMode: strp(string(models.InheritancePartial)),
			}); err != nil {
				t.Fatalf("switch to partial: %v", err)
			}
		}
		if _, err := f.projects.UpdateProject(ctx, ownerID, project.ID, &services.UpdateProjectRequest{
			InheritanceMode: strp(full),
		}); err != nil {
			t.Fatalf("switch to full: %v", err)
		}
	}

	folders, err := f.folderRepo.ListByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(folders) != 1 {
		t.Fatalf("got %d project folders after re-entering full, want 1", len(folders))
	}
}

func TestSwitchToNoneRequiresConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	project := f.mustProject(t, ownerID, account.ID, "platform", models.InheritanceFull)

	none := string(models.InheritanceNone)
	_, err := f.projects.UpdateProject(ctx, ownerID, project.ID, &services.UpdateProjectRequest{
		InheritanceMode: strp(none),
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("unconfirmed switch to none = %v, want conflict", err)
	}

	// project mode unchanged, folder still synced
	got, err := f.projects.GetProject(ctx, ownerID, project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.InheritanceMode != models.InheritanceFull {
		t.Fatalf("mode changed to %s despite the conflict", got.InheritanceMode)
	}

	updated, err := f.projects.UpdateProject(ctx, ownerID, project.ID, &services.UpdateProjectRequest{
		InheritanceMode: strp(none),
		ConfirmDetach:   true,
	})
	if err != nil {
		t.Fatalf("confirmed switch to none: %v", err)
	}
	if updated.InheritanceMode != models.InheritanceNone {
		t.Fatalf("mode = %s, want none", updated.InheritanceMode)
	}

	byStatus := f.projectFoldersByStatus(t, project.ID)
	if byStatus[models.SyncSynced] != 0 || byStatus[models.SyncDetached] != 1 {
		t.Errorf("after none: synced=%d detached=%d, want 0/1", byStatus[models.SyncSynced], byStatus[models.SyncDetached])
	}
}

func TestSwitchToNoneWithoutSyncedFolders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	project := f.mustProject(t, ownerID, account.ID, "platform", "")

	// nothing synced: no confirmation needed
	updated, err := f.projects.UpdateProject(ctx, ownerID, project.ID, &services.UpdateProjectRequest{
		InheritanceMode: strp(string(models.InheritanceNone)),
	})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.InheritanceMode != models.InheritanceNone {
		t.Errorf("mode = %s, want none", updated.InheritanceMode)
	}
}

func TestSyncImpactPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	f.mustAccountFolder(t, ownerID, account.ID, "playbooks", nil)
	project := f.mustProject(t, ownerID, account.ID, "platform", "")

	impact, err := f.projects.SyncImpact(ctx, ownerID, project.ID, models.InheritanceFull)
	if err != nil {
		t.Fatalf("SyncImpact(full): %v", err)
	}
	if impact.SyncCount != 2 {
		t.Errorf("SyncCount = %d, want 2", impact.SyncCount)
	}
	if impact.NeedsConfirm {
		t.Errorf("entering full never needs confirmation")
	}

	if _, err := f.projects.UpdateProject(ctx, ownerID, project.ID, &services.UpdateProjectRequest{
		InheritanceMode: strp(string(models.InheritanceFull)),
	}); err != nil {
		t.Fatalf("switch to full: %v", err)
	}

	impact, err = f.projects.SyncImpact(ctx, ownerID, project.ID, models.InheritanceNone)
	if err != nil {
		t.Fatalf("SyncImpact(none): %v", err)
	}
	if impact.DetachCount != 2 || !impact.NeedsConfirm {
		t.Errorf("DetachCount=%d NeedsConfirm=%v, want 2/true", impact.DetachCount, impact.NeedsConfirm)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	project := f.mustProject(t, ownerID, account.ID, "platform", "")
	folder := f.mustProjectFolder(t, ownerID, project.ID, "docs", nil)
	f.mustRule(t, ownerID, folder.ID, "tone", "second person, no jargon")
	if _, err := f.perms.Grant(ctx, ownerID, &services.GrantRequest{
		ResourceType:   models.ResourceFolder,
		ResourceID:     folder.ID,
		TargetType:     models.TargetUser,
		TargetID:       memberID,
		PermissionType: models.PermissionRead,
	}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	if err := f.projects.DeleteProject(ctx, ownerID, project.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if len(f.store.projects) != 0 {
		t.Errorf("project row survived the delete")
	}
	if len(f.store.folders) != 0 {
		t.Errorf("%d folder rows survived the delete", len(f.store.folders))
	}
	if len(f.store.rules) != 0 {
		t.Errorf("%d rule rows survived the delete", len(f.store.rules))
	}
	if len(f.store.perms) != 0 {
		t.Errorf("%d permission rows survived the delete", len(f.store.perms))
	}
}

func TestProjectLimitPerPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme") // free plan: 3 projects
	for _, slug := range []string{"one", "two", "three"} {
		f.mustProject(t, ownerID, account.ID, slug, "")
	}

	_, err := f.projects.CreateProject(ctx, &services.CreateProjectRequest{
		UserID:    ownerID,
		AccountID: account.ID,
		Name:      "four",
		Slug:      "four",
	})
	var limit *domain.LimitExceededError
	if !errors.As(err, &limit) {
		t.Fatalf("fourth project on free plan = %v, want LimitExceededError", err)
	}
}
