package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// TreeService assembles nested folder/rule trees for read endpoints.
type TreeService interface {
	// EffectiveTree computes the folders visible inside a project under its
	// inheritance mode: the project's own nodes plus, for full mode, any
	// account root folder not yet represented (rendered synced, read-only)
	EffectiveTree(ctx context.Context, userID, projectID string) (*models.TreeNode, error)

	// AccountTree returns the account-scoped tree
	AccountTree(ctx context.Context, userID, accountID string) (*models.TreeNode, error)
}
