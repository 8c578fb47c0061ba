package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
)

// PostgresAccountRepository implements the AccountRepository interface
type PostgresAccountRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(config *RepositoryConfig) repositories.AccountRepository {
	return &PostgresAccountRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new account
func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, slug, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.Accounts)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Slug,
		account.Plan,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("account slug %q already exists", account.Slug),
				ResourceType: "account",
			}
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := fmt.Sprintf(`
		SELECT id, name, slug, plan, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Accounts)

	var account models.Account
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.Slug,
		&account.Plan,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

// Update updates an account's name, slug and plan
func (r *PostgresAccountRepository) Update(ctx context.Context, account *models.Account) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, slug = $2, plan = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Accounts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		account.Name,
		account.Slug,
		account.Plan,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		if isDuplicate(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("account slug %q already exists", account.Slug),
				ResourceType: "account",
			}
		}
		return fmt.Errorf("update account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", account.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes an account
func (r *PostgresAccountRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Accounts)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByUser lists accounts the user is a member of, via memberships
func (r *PostgresAccountRepository) ListByUser(ctx context.Context, userID string) ([]models.Account, error) {
	query := fmt.Sprintf(`
		SELECT a.id, a.name, a.slug, a.plan, a.created_at, a.updated_at
		FROM %s a
		JOIN %s m ON m.account_id = a.id
		WHERE m.user_id = $1
		ORDER BY a.name ASC
	`, r.tables.Accounts, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.ID,
			&account.Name,
			&account.Slug,
			&account.Plan,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}
