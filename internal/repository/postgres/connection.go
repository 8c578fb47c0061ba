package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rulebase/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Accounts      string
	Memberships   string
	Groups        string
	GroupMembers  string
	AccountGroups string
	Projects      string
	Folders       string
	Rules         string
	Permissions   string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Accounts:      fmt.Sprintf("%saccounts", prefix),
		Memberships:   fmt.Sprintf("%smemberships", prefix),
		Groups:        fmt.Sprintf("%sgroups", prefix),
		GroupMembers:  fmt.Sprintf("%sgroup_members", prefix),
		AccountGroups: fmt.Sprintf("%saccount_groups", prefix),
		Projects:      fmt.Sprintf("%sprojects", prefix),
		Folders:       fmt.Sprintf("%sfolders", prefix),
		Rules:         fmt.Sprintf("%srules", prefix),
		Permissions:   fmt.Sprintf("%spermissions", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// When the connection string points at a transaction pooler (port 6543),
// prepared statements break with "prepared statement already exists", so the
// query exec mode is switched to cache_describe, which uses the extended
// protocol without server-side prepared statements. An explicit
// default_query_exec_mode in the connection string takes precedence.
//
// Interpolating table prefixes with fmt.Sprintf is safe with prepared
// statements because the SQL text is fixed before it reaches the server;
// each prefix produces its own distinct statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for pooler compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction;
// otherwise the pool. Repositories therefore participate automatically in
// any transaction started by the service layer.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
