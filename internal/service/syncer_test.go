package service

import (
	"context"
	"errors"
	"testing"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/services"
)

func TestSyncDetachResyncRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	origin := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	originRule := f.mustRule(t, ownerID, origin.ID, "review", "original content")
	project := f.mustProject(t, ownerID, account.ID, "platform", "")

	// sync: a read-only copy with the origin's rules
	copy, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, project.ID)
	if err != nil {
		t.Fatalf("SyncFolder: %v", err)
	}
	if copy.SyncStatus != models.SyncSynced || copy.Status() != models.StatusReadOnly {
		t.Fatalf("copy status = %s/%s, want synced/read-only", copy.SyncStatus, copy.Status())
	}
	if copy.InheritedFrom == nil || *copy.InheritedFrom != origin.ID {
		t.Fatalf("copy origin pointer = %v, want %s", copy.InheritedFrom, origin.ID)
	}
	copiedRules, err := f.ruleRepo.ListByFolder(ctx, copy.ID)
	if err != nil {
		t.Fatalf("ListByFolder: %v", err)
	}
	if len(copiedRules) != 1 || copiedRules[0].Content != "original content" {
		t.Fatalf("copied rules = %v, want one with the origin content", copiedRules)
	}

	// synced copies reject edits and new rules
	if _, err := f.folders.UpdateFolder(ctx, ownerID, copy.ID, &services.UpdateFolderRequest{Name: strp("renamed")}); !errors.As(err, new(*domain.ReadOnlyError)) {
		t.Fatalf("rename of synced copy = %v, want ReadOnlyError", err)
	}
	if _, err := f.rules.CreateRule(ctx, &services.CreateRuleRequest{
		UserID: ownerID, FolderID: copy.ID, Name: "extra", Content: "x",
	}); !errors.As(err, new(*domain.ReadOnlyTargetError)) {
		t.Fatalf("rule create in synced copy = %v, want ReadOnlyTargetError", err)
	}

	// detach: editable, content preserved
	detached, err := f.sync.DetachFolder(ctx, ownerID, copy.ID)
	if err != nil {
		t.Fatalf("DetachFolder: %v", err)
	}
	if detached.SyncStatus != models.SyncDetached || detached.SourceOfTruth != models.SourceProject {
		t.Fatalf("detached status = %s/%s", detached.SyncStatus, detached.SourceOfTruth)
	}
	copiedRules, _ = f.ruleRepo.ListByFolder(ctx, copy.ID)
	if len(copiedRules) != 1 || copiedRules[0].SyncStatus != models.SyncDetached {
		t.Fatalf("rules should detach with the folder, got %v", copiedRules)
	}

	// edit while detached, then change the origin
	if _, err := f.rules.UpdateRule(ctx, ownerID, copiedRules[0].ID, &services.UpdateRuleRequest{
		Content: strp("local edit"),
	}); err != nil {
		t.Fatalf("UpdateRule on detached copy: %v", err)
	}
	if _, err := f.rules.UpdateRule(ctx, ownerID, originRule.ID, &services.UpdateRuleRequest{
		Content: strp("updated origin content"),
	}); err != nil {
		t.Fatalf("UpdateRule on origin: %v", err)
	}

	// resync: origin wins, local edits are discarded
	resynced, err := f.sync.ResyncFolder(ctx, ownerID, copy.ID)
	if err != nil {
		t.Fatalf("ResyncFolder: %v", err)
	}
	if resynced.SyncStatus != models.SyncSynced {
		t.Fatalf("resynced status = %s, want synced", resynced.SyncStatus)
	}
	copiedRules, _ = f.ruleRepo.ListByFolder(ctx, copy.ID)
	if len(copiedRules) != 1 {
		t.Fatalf("got %d rules after resync, want 1", len(copiedRules))
	}
	if copiedRules[0].Content != "updated origin content" {
		t.Errorf("resync content = %q, want the current origin content", copiedRules[0].Content)
	}
}

func TestSyncFolderTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	origin := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	project := f.mustProject(t, ownerID, account.ID, "platform", "")

	copy, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, project.ID)
	if err != nil {
		t.Fatalf("first SyncFolder: %v", err)
	}

	_, err = f.sync.SyncFolder(ctx, ownerID, origin.ID, project.ID)
	var already *domain.AlreadySyncedError
	if !errors.As(err, &already) {
		t.Fatalf("second SyncFolder = %v, want AlreadySyncedError", err)
	}
	if already.ExistingID != copy.ID {
		t.Errorf("ExistingID = %s, want %s", already.ExistingID, copy.ID)
	}

	// a detached copy also blocks a fresh sync; resync is the way back
	if _, err := f.sync.DetachFolder(ctx, ownerID, copy.ID); err != nil {
		t.Fatalf("DetachFolder: %v", err)
	}
	if _, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, project.ID); !errors.As(err, &already) {
		t.Fatalf("sync over detached copy = %v, want AlreadySyncedError", err)
	}
}

func TestSyncIntoNoneModeProjectRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	origin := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	project := f.mustProject(t, ownerID, account.ID, "isolated", models.InheritanceNone)

	_, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, project.ID)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("sync into none-mode project = %v, want validation error", err)
	}
}

func TestSyncNestsUnderParentCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	parent := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	child := f.mustAccountFolder(t, ownerID, account.ID, "security", &parent.ID)
	project := f.mustProject(t, ownerID, account.ID, "platform", "")

	parentCopy, err := f.sync.SyncFolder(ctx, ownerID, parent.ID, project.ID)
	if err != nil {
		t.Fatalf("sync parent: %v", err)
	}
	childCopy, err := f.sync.SyncFolder(ctx, ownerID, child.ID, project.ID)
	if err != nil {
		t.Fatalf("sync child: %v", err)
	}
	if childCopy.ParentFolderID == nil || *childCopy.ParentFolderID != parentCopy.ID {
		t.Errorf("child copy parent = %v, want %s", childCopy.ParentFolderID, parentCopy.ID)
	}

	// without a parent copy present, the copy lands at the project root
	project2 := f.mustProject(t, ownerID, account.ID, "website", "")
	orphanCopy, err := f.sync.SyncFolder(ctx, ownerID, child.ID, project2.ID)
	if err != nil {
		t.Fatalf("sync child alone: %v", err)
	}
	if orphanCopy.ParentFolderID != nil {
		t.Errorf("copy without a parent copy should land at the root, got %v", *orphanCopy.ParentFolderID)
	}
}

func TestRuleDetachResync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	origin := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	originRule := f.mustRule(t, ownerID, origin.ID, "review", "original")
	project := f.mustProject(t, ownerID, account.ID, "platform", "")
	copy, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, project.ID)
	if err != nil {
		t.Fatalf("SyncFolder: %v", err)
	}
	copied, _ := f.ruleRepo.ListByFolder(ctx, copy.ID)
	ruleCopy := copied[0]

	detached, err := f.rules.DetachRule(ctx, ownerID, ruleCopy.ID)
	if err != nil {
		t.Fatalf("DetachRule: %v", err)
	}
	if detached.SyncStatus != models.SyncDetached {
		t.Fatalf("status = %s, want detached", detached.SyncStatus)
	}

	// the folder itself stays synced; only the rule's link broke
	folder, err := f.folderRepo.GetByID(ctx, copy.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if folder.SyncStatus != models.SyncSynced {
		t.Errorf("folder status = %s, detaching one rule must not detach the folder", folder.SyncStatus)
	}

	if _, err := f.rules.UpdateRule(ctx, ownerID, originRule.ID, &services.UpdateRuleRequest{
		Content: strp("fresh origin"),
	}); err != nil {
		t.Fatalf("UpdateRule origin: %v", err)
	}
	resynced, err := f.rules.ResyncRule(ctx, ownerID, ruleCopy.ID)
	if err != nil {
		t.Fatalf("ResyncRule: %v", err)
	}
	if resynced.Content != "fresh origin" || resynced.SyncStatus != models.SyncSynced {
		t.Errorf("resynced rule = %q/%s, want origin content and synced", resynced.Content, resynced.SyncStatus)
	}
}

func TestResyncAfterOriginDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	origin := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	project := f.mustProject(t, ownerID, account.ID, "platform", "")
	copy, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, project.ID)
	if err != nil {
		t.Fatalf("SyncFolder: %v", err)
	}
	if _, err := f.sync.DetachFolder(ctx, ownerID, copy.ID); err != nil {
		t.Fatalf("DetachFolder: %v", err)
	}

	// deleting the origin clears the detached copy's pointer, so resync
	// reports a validation failure rather than reviving a dead link
	if err := f.folders.DeleteFolder(ctx, ownerID, origin.ID); err != nil {
		t.Fatalf("DeleteFolder origin: %v", err)
	}
	survivor, err := f.folderRepo.GetByID(ctx, copy.ID)
	if err != nil {
		t.Fatalf("detached copy should survive the origin delete: %v", err)
	}
	if survivor.InheritedFrom != nil {
		t.Fatalf("origin pointer should be cleared, got %v", *survivor.InheritedFrom)
	}

	if _, err := f.sync.ResyncFolder(ctx, ownerID, copy.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("resync without an origin = %v, want validation error", err)
	}
}
