package repositories

import (
	"context"

	"rulebase/internal/domain/models"
)

// AccountRepository defines data access operations for accounts.
type AccountRepository interface {
	// Create creates a new account
	Create(ctx context.Context, account *models.Account) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// Update updates an account's name, slug and plan
	Update(ctx context.Context, account *models.Account) error

	// Delete deletes an account
	Delete(ctx context.Context, id string) error

	// ListByUser lists accounts the user is a member of, via memberships
	ListByUser(ctx context.Context, userID string) ([]models.Account, error)
}
