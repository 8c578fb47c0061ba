package hierarchy

import (
	"time"

	"github.com/google/uuid"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
)

// Sync-state transitions for folders and rules. These are the only places
// that flip SyncStatus/SourceOfTruth, so the legal transition graph
// (local terminal, synced <-> detached) lives entirely in this file.

// NewSyncedFolderCopy builds the project-side copy of an account folder.
// The copy carries both scope ids: AccountID points at the source account,
// ProjectID at the owning project.
func NewSyncedFolderCopy(src *models.Folder, projectID string, parentID *string, now time.Time) *models.Folder {
	return &models.Folder{
		ID:                 uuid.NewString(),
		AccountID:          src.AccountID,
		ProjectID:          &projectID,
		ParentFolderID:     parentID,
		Name:               src.Name,
		DisplayOrder:       src.DisplayOrder,
		SyncStatus:         models.SyncSynced,
		SourceOfTruth:      models.SourceAccount,
		InheritedFrom:      &src.ID,
		InheritPermissions: src.InheritPermissions,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// NewSyncedRuleCopy builds the project-side copy of an account rule, placed
// into the given project folder. Content is copied verbatim at sync time.
func NewSyncedRuleCopy(src *models.Rule, folderID string, now time.Time) *models.Rule {
	return &models.Rule{
		ID:            uuid.NewString(),
		FolderID:      folderID,
		Name:          src.Name,
		Content:       src.Content,
		SyncStatus:    models.SyncSynced,
		SourceOfTruth: models.SourceAccount,
		InheritedFrom: &src.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// DetachFolder breaks the link: the copy becomes editable and the project
// owns its content from here on. Only a synced folder can detach.
func DetachFolder(f *models.Folder, now time.Time) error {
	if f.SyncStatus != models.SyncSynced {
		return &domain.ValidationError{Message: "only a synced folder can be detached"}
	}
	f.SyncStatus = models.SyncDetached
	f.SourceOfTruth = models.SourceProject
	f.UpdatedAt = now
	return nil
}

// DetachRule breaks the link for one rule.
func DetachRule(r *models.Rule, now time.Time) error {
	if r.SyncStatus != models.SyncSynced {
		return &domain.ValidationError{Message: "only a synced rule can be detached"}
	}
	r.SyncStatus = models.SyncDetached
	r.SourceOfTruth = models.SourceProject
	r.UpdatedAt = now
	return nil
}

// ResyncFolder re-establishes the link from a detached folder. The caller
// overwrites content from the account original afterwards; edits made while
// detached are lost, which is why resync is always explicit and per-folder.
func ResyncFolder(f *models.Folder, now time.Time) error {
	if f.SyncStatus != models.SyncDetached {
		return &domain.ValidationError{Message: "only a detached folder can be resynced"}
	}
	if f.InheritedFrom == nil {
		return &domain.ValidationError{Message: "folder has no account origin to resync from"}
	}
	f.SyncStatus = models.SyncSynced
	f.SourceOfTruth = models.SourceAccount
	f.UpdatedAt = now
	return nil
}

// ResyncRule re-establishes the link for one rule.
func ResyncRule(r *models.Rule, now time.Time) error {
	if r.SyncStatus != models.SyncDetached {
		return &domain.ValidationError{Message: "only a detached rule can be resynced"}
	}
	if r.InheritedFrom == nil {
		return &domain.ValidationError{Message: "rule has no account origin to resync from"}
	}
	r.SyncStatus = models.SyncSynced
	r.SourceOfTruth = models.SourceAccount
	r.UpdatedAt = now
	return nil
}

// EnsureFolderEditable rejects direct mutation of a synced folder.
// Mutation must go through detach first.
func EnsureFolderEditable(f *models.Folder) error {
	if f.SyncStatus == models.SyncSynced {
		return &domain.ReadOnlyError{ResourceType: "folder", ResourceID: f.ID}
	}
	return nil
}

// EnsureRuleEditable rejects direct mutation of a synced rule.
func EnsureRuleEditable(r *models.Rule) error {
	if r.SyncStatus == models.SyncSynced {
		return &domain.ReadOnlyError{ResourceType: "rule", ResourceID: r.ID}
	}
	return nil
}
