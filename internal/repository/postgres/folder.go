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

const folderColumns = `id, account_id, project_id, parent_folder_id, name, display_order,
	sync_status, source_of_truth, inherited_from, inherit_permissions, created_at, updated_at`

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.tables.Folders, folderColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		folder.ID,
		folder.AccountID,
		folder.ProjectID,
		folder.ParentFolderID,
		folder.Name,
		folder.DisplayOrder,
		folder.SyncStatus,
		folder.SourceOfTruth,
		folder.InheritedFrom,
		folder.InheritPermissions,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// Update updates a folder's mutable fields (name, parent, order, sync state)
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_folder_id = $1, name = $2, display_order = $3, sync_status = $4,
		    source_of_truth = $5, inherited_from = $6, inherit_permissions = $7, updated_at = $8
		WHERE id = $9
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.ParentFolderID,
		folder.Name,
		folder.DisplayOrder,
		folder.SyncStatus,
		folder.SourceOfTruth,
		folder.InheritedFrom,
		folder.InheritPermissions,
		folder.UpdatedAt,
		folder.ID,
	)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// DeleteMany deletes the given folders; used by cascade delete inside a
// transaction
func (r *PostgresFolderRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("delete folders: %w", err)
	}

	return nil
}

// ListByAccount lists account-scoped folders (project_id IS NULL)
func (r *PostgresFolderRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE account_id = $1 AND project_id IS NULL
		ORDER BY display_order ASC, name ASC
	`, folderColumns, r.tables.Folders)

	return r.list(ctx, query, accountID)
}

// ListByProject lists all folders owned by a project, synced copies included
func (r *PostgresFolderRepository) ListByProject(ctx context.Context, projectID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE project_id = $1
		ORDER BY display_order ASC, name ASC
	`, folderColumns, r.tables.Folders)

	return r.list(ctx, query, projectID)
}

// GetSyncedCopy finds the project's synced/detached copy of an account
// folder, nil if none exists
func (r *PostgresFolderRepository) GetSyncedCopy(ctx context.Context, accountFolderID, projectID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE inherited_from = $1 AND project_id = $2
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, accountFolderID, projectID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get synced copy: %w", err)
	}

	return folder, nil
}

// ListCopiesOf lists every project copy (any sync state) whose origin is
// one of the given account folders
func (r *PostgresFolderRepository) ListCopiesOf(ctx context.Context, accountFolderIDs []string) ([]models.Folder, error) {
	if len(accountFolderIDs) == 0 {
		return []models.Folder{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE inherited_from = ANY($1)
	`, folderColumns, r.tables.Folders)

	return r.list(ctx, query, accountFolderIDs)
}

func (r *PostgresFolderRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Folder, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	if folders == nil {
		folders = []models.Folder{}
	}
	return folders, nil
}

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.AccountID,
		&folder.ProjectID,
		&folder.ParentFolderID,
		&folder.Name,
		&folder.DisplayOrder,
		&folder.SyncStatus,
		&folder.SourceOfTruth,
		&folder.InheritedFrom,
		&folder.InheritPermissions,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}
