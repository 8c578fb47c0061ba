package services

import (
	"context"

	"rulebase/internal/domain/models"
)

// AccountService handles account business logic.
type AccountService interface {
	// CreateAccount creates an account and an owner membership for the caller
	CreateAccount(ctx context.Context, req *CreateAccountRequest) (*models.Account, error)

	// GetAccount retrieves an account the user is a member of
	GetAccount(ctx context.Context, userID, id string) (*models.Account, error)

	// ListAccounts lists the user's accounts
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)

	// UpdateAccount updates name/slug/plan (admin role required)
	UpdateAccount(ctx context.Context, userID, id string, req *UpdateAccountRequest) (*models.Account, error)

	// DeleteAccount deletes an account (owner role required); fails when it
	// would leave any of its owners without an owned account
	DeleteAccount(ctx context.Context, userID, id string) error
}

// CreateAccountRequest represents an account creation request.
type CreateAccountRequest struct {
	UserID string `json:"-"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Plan   string `json:"plan,omitempty"`
}

// UpdateAccountRequest represents an account update request.
type UpdateAccountRequest struct {
	Name *string `json:"name,omitempty"`
	Slug *string `json:"slug,omitempty"`
	Plan *string `json:"plan,omitempty"`
}
