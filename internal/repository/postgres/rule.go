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

const ruleColumns = `id, folder_id, name, content, usage_count,
	sync_status, source_of_truth, inherited_from, created_at, updated_at`

// PostgresRuleRepository implements the RuleRepository interface
type PostgresRuleRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(config *RepositoryConfig) repositories.RuleRepository {
	return &PostgresRuleRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new rule
func (r *PostgresRuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Rules, ruleColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		rule.ID,
		rule.FolderID,
		rule.Name,
		rule.Content,
		rule.UsageCount,
		rule.SyncStatus,
		rule.SourceOfTruth,
		rule.InheritedFrom,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}

	return nil
}

// GetByID retrieves a rule by ID
func (r *PostgresRuleRepository) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, ruleColumns, r.tables.Rules)

	executor := GetExecutor(ctx, r.pool)
	rule, err := scanRule(executor.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get rule: %w", err)
	}

	return rule, nil
}

// Update updates a rule
func (r *PostgresRuleRepository) Update(ctx context.Context, rule *models.Rule) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, content = $2, sync_status = $3, source_of_truth = $4,
		    inherited_from = $5, updated_at = $6
		WHERE id = $7
	`, r.tables.Rules)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		rule.Name,
		rule.Content,
		rule.SyncStatus,
		rule.SourceOfTruth,
		rule.InheritedFrom,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a rule
func (r *PostgresRuleRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Rules)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByFolder lists rules owned by a folder
func (r *PostgresRuleRepository) ListByFolder(ctx context.Context, folderID string) ([]models.Rule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE folder_id = $1 ORDER BY name ASC
	`, ruleColumns, r.tables.Rules)

	return r.list(ctx, query, folderID)
}

// ListByFolders lists rules owned by any of the folders
func (r *PostgresRuleRepository) ListByFolders(ctx context.Context, folderIDs []string) ([]models.Rule, error) {
	if len(folderIDs) == 0 {
		return []models.Rule{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE folder_id = ANY($1) ORDER BY name ASC
	`, ruleColumns, r.tables.Rules)

	return r.list(ctx, query, folderIDs)
}

// DeleteByFolders deletes every rule owned by the given folders
func (r *PostgresRuleRepository) DeleteByFolders(ctx context.Context, folderIDs []string) error {
	if len(folderIDs) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE folder_id = ANY($1)`, r.tables.Rules)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, folderIDs); err != nil {
		return fmt.Errorf("delete rules: %w", err)
	}

	return nil
}

// IncrementUsage bumps a rule's usage counter
func (r *PostgresRuleRepository) IncrementUsage(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET usage_count = usage_count + 1 WHERE id = $1
	`, r.tables.Rules)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresRuleRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Rule, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	if rules == nil {
		rules = []models.Rule{}
	}
	return rules, nil
}

func scanRule(row pgx.Row) (*models.Rule, error) {
	var rule models.Rule
	err := row.Scan(
		&rule.ID,
		&rule.FolderID,
		&rule.Name,
		&rule.Content,
		&rule.UsageCount,
		&rule.SyncStatus,
		&rule.SourceOfTruth,
		&rule.InheritedFrom,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
