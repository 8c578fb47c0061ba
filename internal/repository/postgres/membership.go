package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
)

// PostgresMembershipRepository implements the MembershipRepository interface
type PostgresMembershipRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(config *RepositoryConfig) repositories.MembershipRepository {
	return &PostgresMembershipRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new membership
func (r *PostgresMembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, account_id, user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		m.ID,
		m.AccountID,
		m.UserID,
		m.Role,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return &domain.ConflictError{
				Message:      "user is already a member of this account",
				ResourceType: "membership",
			}
		}
		return fmt.Errorf("create membership: %w", err)
	}

	return nil
}

// GetByAccountAndUser retrieves a user's membership in an account
func (r *PostgresMembershipRepository) GetByAccountAndUser(ctx context.Context, accountID, userID string) (*models.Membership, error) {
	query := fmt.Sprintf(`
		SELECT id, account_id, user_id, role, created_at, updated_at
		FROM %s
		WHERE account_id = $1 AND user_id = $2
	`, r.tables.Memberships)

	var m models.Membership
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, accountID, userID).Scan(
		&m.ID,
		&m.AccountID,
		&m.UserID,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("membership of %s in %s: %w", userID, accountID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	return &m, nil
}

// ListByAccount lists all memberships of an account
func (r *PostgresMembershipRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Membership, error) {
	query := fmt.Sprintf(`
		SELECT id, account_id, user_id, role, created_at, updated_at
		FROM %s
		WHERE account_id = $1
		ORDER BY created_at ASC
	`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		err := rows.Scan(&m.ID, &m.AccountID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	if members == nil {
		members = []models.Membership{}
	}
	return members, nil
}

// UpdateRole changes a member's role
func (r *PostgresMembershipRepository) UpdateRole(ctx context.Context, accountID, userID string, role models.Role) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET role = $1, updated_at = $2
		WHERE account_id = $3 AND user_id = $4
	`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, role, time.Now(), accountID, userID)
	if err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership of %s in %s: %w", userID, accountID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a member from an account
func (r *PostgresMembershipRepository) Delete(ctx context.Context, accountID, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE account_id = $1 AND user_id = $2
	`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, accountID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership of %s in %s: %w", userID, accountID, domain.ErrNotFound)
	}

	return nil
}

// CountOwners counts owner-role memberships in an account
func (r *PostgresMembershipRepository) CountOwners(ctx context.Context, accountID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE account_id = $1 AND role = $2
	`, r.tables.Memberships)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, accountID, models.RoleOwner).Scan(&count); err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return count, nil
}

// CountOwnedBy counts accounts in which the user holds the owner role
func (r *PostgresMembershipRepository) CountOwnedBy(ctx context.Context, userID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE user_id = $1 AND role = $2
	`, r.tables.Memberships)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userID, models.RoleOwner).Scan(&count); err != nil {
		return 0, fmt.Errorf("count owned accounts: %w", err)
	}
	return count, nil
}
