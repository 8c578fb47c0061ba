package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rulebase/internal/domain"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/repositories"
)

// PostgresProjectRepository implements the ProjectRepository interface
type PostgresProjectRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(config *RepositoryConfig) repositories.ProjectRepository {
	return &PostgresProjectRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new project
func (r *PostgresProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, account_id, name, slug, inheritance_mode, inherit_permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		project.ID,
		project.AccountID,
		project.Name,
		project.Slug,
		project.InheritanceMode,
		project.InheritPermissions,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("project slug %q already exists in this account", project.Slug),
				ResourceType: "project",
			}
		}
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

// GetByID retrieves a project by ID
func (r *PostgresProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`
		SELECT id, account_id, name, slug, inheritance_mode, inherit_permissions, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Projects)

	var project models.Project
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.AccountID,
		&project.Name,
		&project.Slug,
		&project.InheritanceMode,
		&project.InheritPermissions,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return &project, nil
}

// Update updates a project
func (r *PostgresProjectRepository) Update(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, slug = $2, inheritance_mode = $3, inherit_permissions = $4, updated_at = $5
		WHERE id = $6
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		project.Name,
		project.Slug,
		project.InheritanceMode,
		project.InheritPermissions,
		project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		if isDuplicate(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("project slug %q already exists in this account", project.Slug),
				ResourceType: "project",
			}
		}
		return fmt.Errorf("update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", project.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a project
func (r *PostgresProjectRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByAccount lists all projects of an account
func (r *PostgresProjectRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Project, error) {
	query := fmt.Sprintf(`
		SELECT id, account_id, name, slug, inheritance_mode, inherit_permissions, created_at, updated_at
		FROM %s
		WHERE account_id = $1
		ORDER BY name ASC
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ID,
			&project.AccountID,
			&project.Name,
			&project.Slug,
			&project.InheritanceMode,
			&project.InheritPermissions,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// CountByAccount counts projects in an account (plan limit checks)
func (r *PostgresProjectRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE account_id = $1`, r.tables.Projects)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}
