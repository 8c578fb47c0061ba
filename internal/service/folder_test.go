package service

import (
	"context"
	"errors"
	"testing"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/services"
)

func TestMoveFolderCycleRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	a := f.mustAccountFolder(t, ownerID, account.ID, "a", nil)
	b := f.mustAccountFolder(t, ownerID, account.ID, "b", &a.ID)
	c := f.mustAccountFolder(t, ownerID, account.ID, "c", &b.ID)

	tests := []struct {
		name   string
		folder string
		target string
	}{
		{"under itself", a.ID, a.ID},
		{"under child", a.ID, b.ID},
		{"under grandchild", a.ID, c.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.folders.MoveFolder(ctx, ownerID, tt.folder, &services.MoveFolderRequest{
				SetParent:      true,
				ParentFolderID: &tt.target,
			})
			var cycle *domain.CycleError
			if !errors.As(err, &cycle) {
				t.Fatalf("MoveFolder = %v, want CycleError", err)
			}
		})
	}

	// a legal reparent still works: c moves under a
	moved, err := f.folders.MoveFolder(ctx, ownerID, c.ID, &services.MoveFolderRequest{
		SetParent:      true,
		ParentFolderID: &a.ID,
	})
	if err != nil {
		t.Fatalf("legal MoveFolder: %v", err)
	}
	if moved.ParentFolderID == nil || *moved.ParentFolderID != a.ID {
		t.Errorf("parent = %v, want %s", moved.ParentFolderID, a.ID)
	}
}

func TestMoveFolderToRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	a := f.mustAccountFolder(t, ownerID, account.ID, "a", nil)
	b := f.mustAccountFolder(t, ownerID, account.ID, "b", &a.ID)

	moved, err := f.folders.MoveFolder(ctx, ownerID, b.ID, &services.MoveFolderRequest{SetParent: true})
	if err != nil {
		t.Fatalf("MoveFolder to root: %v", err)
	}
	if moved.ParentFolderID != nil {
		t.Errorf("parent = %v, want root", *moved.ParentFolderID)
	}
}

func TestGetFolderComputesPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	a := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	b := f.mustAccountFolder(t, ownerID, account.ID, "security", &a.ID)

	got, err := f.folders.GetFolder(ctx, ownerID, b.ID)
	if err != nil {
		t.Fatalf("GetFolder: %v", err)
	}
	if got.Path != "standards/security" {
		t.Errorf("Path = %q, want standards/security", got.Path)
	}
}

func TestMoveFolderReorderKeepsParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	a := f.mustAccountFolder(t, ownerID, account.ID, "a", nil)
	b := f.mustAccountFolder(t, ownerID, account.ID, "b", &a.ID)

	order := 5
	moved, err := f.folders.MoveFolder(ctx, ownerID, b.ID, &services.MoveFolderRequest{
		DisplayOrder: &order,
	})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if moved.ParentFolderID == nil || *moved.ParentFolderID != a.ID {
		t.Errorf("reorder changed the parent: %v", moved.ParentFolderID)
	}
	if moved.DisplayOrder != 5 {
		t.Errorf("DisplayOrder = %d, want 5", moved.DisplayOrder)
	}
}

func TestMoveIntoSyncedFolderRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	origin := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	project := f.mustProject(t, ownerID, account.ID, "platform", "")
	copy, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, project.ID)
	if err != nil {
		t.Fatalf("SyncFolder: %v", err)
	}
	local := f.mustProjectFolder(t, ownerID, project.ID, "local", nil)

	_, err = f.folders.MoveFolder(ctx, ownerID, local.ID, &services.MoveFolderRequest{
		SetParent:      true,
		ParentFolderID: &copy.ID,
	})
	var readOnly *domain.ReadOnlyTargetError
	if !errors.As(err, &readOnly) {
		t.Fatalf("move into synced folder = %v, want ReadOnlyTargetError", err)
	}
	if readOnly.TargetID != copy.ID {
		t.Errorf("TargetID = %s, want %s", readOnly.TargetID, copy.ID)
	}
}

func TestCreateFolderSiblingNameConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)

	_, err := f.folders.CreateFolder(ctx, &services.CreateFolderRequest{
		UserID:    ownerID,
		AccountID: &account.ID,
		Name:      "standards",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate sibling name = %v, want conflict", err)
	}

	// the same name in a different location is fine
	parent := f.mustAccountFolder(t, ownerID, account.ID, "archive", nil)
	if _, err := f.folders.CreateFolder(ctx, &services.CreateFolderRequest{
		UserID:         ownerID,
		AccountID:      &account.ID,
		ParentFolderID: &parent.ID,
		Name:           "standards",
	}); err != nil {
		t.Fatalf("same name under a different parent: %v", err)
	}
}

func TestCreateFolderScopeExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	project := f.mustProject(t, ownerID, account.ID, "platform", "")

	tests := []struct {
		name      string
		accountID *string
		projectID *string
	}{
		{"neither scope", nil, nil},
		{"both scopes", &account.ID, &project.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.folders.CreateFolder(ctx, &services.CreateFolderRequest{
				UserID:    ownerID,
				AccountID: tt.accountID,
				ProjectID: tt.projectID,
				Name:      "x",
			})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("CreateFolder = %v, want validation error", err)
			}
		})
	}
}

func TestDeleteFolderCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	top := f.mustAccountFolder(t, ownerID, account.ID, "top", nil)
	mid := f.mustAccountFolder(t, ownerID, account.ID, "mid", &top.ID)
	f.mustRule(t, ownerID, top.ID, "r1", "one")
	f.mustRule(t, ownerID, mid.ID, "r2", "two")
	other := f.mustAccountFolder(t, ownerID, account.ID, "other", nil)
	keeper := f.mustRule(t, ownerID, other.ID, "keep", "stays")

	if _, err := f.perms.Grant(ctx, ownerID, &services.GrantRequest{
		ResourceType:   models.ResourceFolder,
		ResourceID:     mid.ID,
		TargetType:     models.TargetUser,
		TargetID:       memberID,
		PermissionType: models.PermissionRead,
	}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	if err := f.folders.DeleteFolder(ctx, ownerID, top.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}

	for _, id := range []string{top.ID, mid.ID} {
		if _, ok := f.store.folders[id]; ok {
			t.Errorf("folder %s survived the cascade", id)
		}
	}
	if _, ok := f.store.folders[other.ID]; !ok {
		t.Errorf("sibling folder was deleted")
	}
	if _, ok := f.store.rules[keeper.ID]; !ok {
		t.Errorf("sibling's rule was deleted")
	}
	if len(f.store.rules) != 1 {
		t.Errorf("got %d rules after cascade, want 1", len(f.store.rules))
	}
	if len(f.store.perms) != 0 {
		t.Errorf("grants on deleted folders must go with them, %d left", len(f.store.perms))
	}
}

func TestDeleteAccountFolderRemovesSyncedCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.mustAccount(t, ownerID, "acme")
	origin := f.mustAccountFolder(t, ownerID, account.ID, "standards", nil)
	f.mustRule(t, ownerID, origin.ID, "review", "content")

	syncedProject := f.mustProject(t, ownerID, account.ID, "platform", "")
	syncedCopy, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, syncedProject.ID)
	if err != nil {
		t.Fatalf("SyncFolder: %v", err)
	}

	detachedProject := f.mustProject(t, ownerID, account.ID, "website", "")
	detachedCopy, err := f.sync.SyncFolder(ctx, ownerID, origin.ID, detachedProject.ID)
	if err != nil {
		t.Fatalf("SyncFolder: %v", err)
	}
	if _, err := f.sync.DetachFolder(ctx, ownerID, detachedCopy.ID); err != nil {
		t.Fatalf("DetachFolder: %v", err)
	}

	if err := f.folders.DeleteFolder(ctx, ownerID, origin.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}

	if _, ok := f.store.folders[syncedCopy.ID]; ok {
		t.Errorf("synced copy must be deleted with its origin")
	}
	survivor, ok := f.store.folders[detachedCopy.ID]
	if !ok {
		t.Fatalf("detached copy must survive the origin delete")
	}
	if survivor.InheritedFrom != nil {
		t.Errorf("surviving copy keeps a dangling origin pointer: %v", *survivor.InheritedFrom)
	}
	// the detached copy's rules are project-owned now and must survive
	rules, err := f.ruleRepo.ListByFolder(ctx, detachedCopy.ID)
	if err != nil {
		t.Fatalf("ListByFolder: %v", err)
	}
	if len(rules) != 1 {
		t.Errorf("detached copy lost its rules, got %d", len(rules))
	}
}
