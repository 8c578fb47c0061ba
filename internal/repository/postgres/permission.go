package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
)

const permissionColumns = `id, resource_type, resource_id, target_type, target_id,
	permission_type, granted_by, granted_at`

// PostgresPermissionRepository implements the PermissionRepository interface
type PostgresPermissionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(config *RepositoryConfig) repositories.PermissionRepository {
	return &PostgresPermissionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new grant
func (r *PostgresPermissionRepository) Create(ctx context.Context, p *models.Permission) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Permissions, permissionColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		p.ID,
		p.ResourceType,
		p.ResourceID,
		p.TargetType,
		p.TargetID,
		p.PermissionType,
		p.GrantedBy,
		p.GrantedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return &domain.ConflictError{
				Message:      "a grant for this principal already exists on this resource",
				ResourceType: string(p.ResourceType),
				ResourceID:   p.ResourceID,
			}
		}
		return fmt.Errorf("create permission: %w", err)
	}

	return nil
}

// GetByID retrieves a grant by ID
func (r *PostgresPermissionRepository) GetByID(ctx context.Context, id string) (*models.Permission, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, permissionColumns, r.tables.Permissions)

	executor := GetExecutor(ctx, r.pool)
	p, err := scanPermission(executor.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("permission %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get permission: %w", err)
	}

	return p, nil
}

// Update changes a grant's permission type
func (r *PostgresPermissionRepository) Update(ctx context.Context, p *models.Permission) error {
	query := fmt.Sprintf(`
		UPDATE %s SET permission_type = $1 WHERE id = $2
	`, r.tables.Permissions)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, p.PermissionType, p.ID)
	if err != nil {
		return fmt.Errorf("update permission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("permission %s: %w", p.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a grant
func (r *PostgresPermissionRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Permissions)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("permission %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByResource lists all grants on a resource
func (r *PostgresPermissionRepository) ListByResource(ctx context.Context, resourceType models.ResourceType, resourceID string) ([]models.Permission, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY granted_at ASC
	`, permissionColumns, r.tables.Permissions)

	return r.list(ctx, query, resourceType, resourceID)
}

// ListForPrincipal lists grants on a resource that target the user directly
// or any of the given groups
func (r *PostgresPermissionRepository) ListForPrincipal(ctx context.Context, resourceType models.ResourceType, resourceID, userID string, groupIDs []string) ([]models.Permission, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE resource_type = $1 AND resource_id = $2
		  AND ((target_type = 'user' AND target_id = $3)
		    OR (target_type = 'group' AND target_id = ANY($4)))
	`, permissionColumns, r.tables.Permissions)

	if groupIDs == nil {
		groupIDs = []string{}
	}
	return r.list(ctx, query, resourceType, resourceID, userID, groupIDs)
}

// DeleteByResources removes all grants on the given resources
func (r *PostgresPermissionRepository) DeleteByResources(ctx context.Context, resourceType models.ResourceType, resourceIDs []string) error {
	if len(resourceIDs) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE resource_type = $1 AND resource_id = ANY($2)
	`, r.tables.Permissions)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, resourceType, resourceIDs); err != nil {
		return fmt.Errorf("delete permissions: %w", err)
	}

	return nil
}

func (r *PostgresPermissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Permission, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	if perms == nil {
		perms = []models.Permission{}
	}
	return perms, nil
}

func scanPermission(row pgx.Row) (*models.Permission, error) {
	var p models.Permission
	err := row.Scan(
		&p.ID,
		&p.ResourceType,
		&p.ResourceID,
		&p.TargetType,
		&p.TargetID,
		&p.PermissionType,
		&p.GrantedBy,
		&p.GrantedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
