package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
)

// PostgresGroupRepository implements the GroupRepository interface
type PostgresGroupRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(config *RepositoryConfig) repositories.GroupRepository {
	return &PostgresGroupRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new group
func (r *PostgresGroupRepository) Create(ctx context.Context, group *models.Group) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.Groups)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		group.ID,
		group.Name,
		group.Description,
		group.CreatedAt,
		group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}

	return nil
}

// GetByID retrieves a group by ID
func (r *PostgresGroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Groups)

	var group models.Group
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get group: %w", err)
	}

	return &group, nil
}

// Update updates a group's name and description
func (r *PostgresGroupRepository) Update(ctx context.Context, group *models.Group) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.Groups)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		group.Name,
		group.Description,
		group.UpdatedAt,
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("group %s: %w", group.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a group, its member rows and account associations
func (r *PostgresGroupRepository) Delete(ctx context.Context, id string) error {
	executor := GetExecutor(ctx, r.pool)

	if _, err := executor.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE group_id = $1`, r.tables.GroupMembers), id); err != nil {
		return fmt.Errorf("delete group members: %w", err)
	}
	if _, err := executor.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE group_id = $1`, r.tables.AccountGroups), id); err != nil {
		return fmt.Errorf("delete group associations: %w", err)
	}

	result, err := executor.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Groups), id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByAccount lists groups associated with an account
func (r *PostgresGroupRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Group, error) {
	query := fmt.Sprintf(`
		SELECT g.id, g.name, g.description, g.created_at, g.updated_at
		FROM %s g
		JOIN %s ag ON ag.group_id = g.id
		WHERE ag.account_id = $1
		ORDER BY g.name ASC
	`, r.tables.Groups, r.tables.AccountGroups)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

// Associate links a group to an account; duplicate associations conflict
func (r *PostgresGroupRepository) Associate(ctx context.Context, accountID, groupID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (account_id, group_id) VALUES ($1, $2)
	`, r.tables.AccountGroups)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, accountID, groupID); err != nil {
		if isDuplicate(err) {
			return &domain.ConflictError{
				Message:      "group is already associated with this account",
				ResourceType: "group",
				ResourceID:   groupID,
			}
		}
		return fmt.Errorf("associate group: %w", err)
	}

	return nil
}

// Unlink removes the account-group edge only
func (r *PostgresGroupRepository) Unlink(ctx context.Context, accountID, groupID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE account_id = $1 AND group_id = $2
	`, r.tables.AccountGroups)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, accountID, groupID)
	if err != nil {
		return fmt.Errorf("unlink group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("association of group %s with account %s: %w", groupID, accountID, domain.ErrNotFound)
	}

	return nil
}

// AddMember adds a user to a group
func (r *PostgresGroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (group_id, user_id) VALUES ($1, $2)
	`, r.tables.GroupMembers)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, groupID, userID); err != nil {
		if isDuplicate(err) {
			return &domain.ConflictError{
				Message:      "user is already in this group",
				ResourceType: "group",
				ResourceID:   groupID,
			}
		}
		return fmt.Errorf("add group member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from a group
func (r *PostgresGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE group_id = $1 AND user_id = $2
	`, r.tables.GroupMembers)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("member %s of group %s: %w", userID, groupID, domain.ErrNotFound)
	}

	return nil
}

// ListMemberIDs lists the user ids in a group
func (r *PostgresGroupRepository) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT user_id FROM %s WHERE group_id = $1 ORDER BY user_id
	`, r.tables.GroupMembers)

	return r.listIDs(ctx, query, groupID)
}

// ListAccountIDs lists the account ids a group is associated with
func (r *PostgresGroupRepository) ListAccountIDs(ctx context.Context, groupID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT account_id FROM %s WHERE group_id = $1 ORDER BY account_id
	`, r.tables.AccountGroups)

	return r.listIDs(ctx, query, groupID)
}

// ListGroupIDsForUser lists ids of groups the user belongs to that are
// associated with the given account
func (r *PostgresGroupRepository) ListGroupIDsForUser(ctx context.Context, accountID, userID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT gm.group_id
		FROM %s gm
		JOIN %s ag ON ag.group_id = gm.group_id
		WHERE gm.user_id = $1 AND ag.account_id = $2
	`, r.tables.GroupMembers, r.tables.AccountGroups)

	return r.listIDs(ctx, query, userID, accountID)
}

func (r *PostgresGroupRepository) listIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
