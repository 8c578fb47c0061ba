package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"rulebase/internal/config"
	"rulebase/internal/domain/models"
	"rulebase/internal/domain/services"
	"rulebase/internal/repository/postgres"
	"rulebase/internal/service"
	"rulebase/internal/service/hierarchy"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed data (for use with shell scripts)")
	clearData := flag.Bool("clear-data", false, "Clear all seeded accounts and their contents (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	seedUserID := os.Getenv("SEED_USER_ID")
	if seedUserID == "" {
		seedUserID = "00000000-0000-0000-0000-000000000001"
	}
	secondUserID := os.Getenv("SEED_SECOND_USER_ID")
	if secondUserID == "" {
		secondUserID = "00000000-0000-0000-0000-000000000002"
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	// Exit early if schema-only mode
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Clear previously seeded data so the run is repeatable
	log.Println("⚠️  Clearing previously seeded accounts...")
	if err := clearSeedData(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	if *clearData {
		log.Println("✅ Data cleared successfully")
		return
	}

	limits, err := config.LoadLimits()
	if err != nil {
		log.Fatalf("Failed to load plan limits: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	accountRepo := postgres.NewAccountRepository(repoConfig)
	memberRepo := postgres.NewMembershipRepository(repoConfig)
	groupRepo := postgres.NewGroupRepository(repoConfig)
	projectRepo := postgres.NewProjectRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	ruleRepo := postgres.NewRuleRepository(repoConfig)
	permRepo := postgres.NewPermissionRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	locker := hierarchy.NewAccountLocker()
	treeCache, err := hierarchy.NewTreeCache(cfg.TreeCacheSize)
	if err != nil {
		log.Fatalf("Failed to create tree cache: %v", err)
	}

	// Create services; seeding goes through the service layer so every row
	// passes the same validation and sync logic as API traffic
	authorizer := service.NewAuthorizer(permRepo, memberRepo, groupRepo, folderRepo, projectRepo, logger)
	accountService := service.NewAccountService(accountRepo, memberRepo, txManager, authorizer, logger)
	membershipService := service.NewMembershipService(memberRepo, authorizer, logger)
	groupService := service.NewGroupService(groupRepo, accountRepo, txManager, authorizer, limits, logger)
	projectService := service.NewProjectService(projectRepo, folderRepo, ruleRepo, permRepo, accountRepo, txManager, locker, authorizer, limits, logger)
	folderService := service.NewFolderService(folderRepo, ruleRepo, permRepo, projectRepo, accountRepo, txManager, locker, treeCache, authorizer, limits, logger)
	ruleService := service.NewRuleService(ruleRepo, folderRepo, projectRepo, accountRepo, txManager, locker, authorizer, limits, logger)
	syncService := service.NewSyncService(folderRepo, ruleRepo, projectRepo, txManager, locker, authorizer, logger)
	permissionService := service.NewPermissionService(permRepo, memberRepo, groupRepo, folderRepo, projectRepo, logger)

	log.Println("📝 Seeding demo account...")

	account, err := accountService.CreateAccount(ctx, &services.CreateAccountRequest{
		UserID: seedUserID,
		Name:   "Acme Engineering",
		Slug:   "acme-engineering",
		Plan:   "team",
	})
	if err != nil {
		log.Fatalf("❌ Failed to create account: %v", err)
	}
	log.Printf("✅ Created account %s (ID: %s)", account.Name, account.ID)

	if _, err := membershipService.AddMember(ctx, seedUserID, account.ID, &services.AddMemberRequest{
		UserID: secondUserID,
		Role:   models.RoleMember,
	}); err != nil {
		log.Fatalf("❌ Failed to add member: %v", err)
	}
	log.Printf("✅ Added member %s", secondUserID)

	// Account-level folders and rules
	standards, err := folderService.CreateFolder(ctx, &services.CreateFolderRequest{
		UserID:             seedUserID,
		AccountID:          &account.ID,
		Name:               "Standards",
		InheritPermissions: true,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create folder: %v", err)
	}
	security, err := folderService.CreateFolder(ctx, &services.CreateFolderRequest{
		UserID:             seedUserID,
		AccountID:          &account.ID,
		ParentFolderID:     &standards.ID,
		Name:               "Security",
		InheritPermissions: true,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create folder: %v", err)
	}
	playbooks, err := folderService.CreateFolder(ctx, &services.CreateFolderRequest{
		UserID:             seedUserID,
		AccountID:          &account.ID,
		Name:               "Playbooks",
		DisplayOrder:       1,
		InheritPermissions: true,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create folder: %v", err)
	}
	log.Printf("✅ Created account folders: %s, %s/%s", playbooks.Name, standards.Name, security.Name)

	for _, r := range seedRules(seedUserID, standards.ID, security.ID, playbooks.ID) {
		rule, err := ruleService.CreateRule(ctx, r)
		if err != nil {
			log.Printf("❌ Failed to create rule '%s': %v", r.Name, err)
			continue
		}
		log.Printf("✅ Created rule: %s (ID: %s)", rule.Name, rule.ID)
	}

	// Projects: one full-inheritance (mirrors the whole account tree) and
	// one partial with a single folder synced in by hand
	platform, err := projectService.CreateProject(ctx, &services.CreateProjectRequest{
		UserID:          seedUserID,
		AccountID:       account.ID,
		Name:            "Platform",
		Slug:            "platform",
		InheritanceMode: string(models.InheritanceFull),
	})
	if err != nil {
		log.Fatalf("❌ Failed to create project: %v", err)
	}
	log.Printf("✅ Created project %s (ID: %s, mode: %s)", platform.Name, platform.ID, platform.InheritanceMode)

	website, err := projectService.CreateProject(ctx, &services.CreateProjectRequest{
		UserID:    seedUserID,
		AccountID: account.ID,
		Name:      "Website",
		Slug:      "website",
	})
	if err != nil {
		log.Fatalf("❌ Failed to create project: %v", err)
	}
	copied, err := syncService.SyncFolder(ctx, seedUserID, standards.ID, website.ID)
	if err != nil {
		log.Fatalf("❌ Failed to sync folder: %v", err)
	}
	log.Printf("✅ Created project %s with synced copy of %s (copy ID: %s)", website.Name, standards.Name, copied.ID)

	// Project-local folder and rule in the partial project
	drafts, err := folderService.CreateFolder(ctx, &services.CreateFolderRequest{
		UserID:             seedUserID,
		ProjectID:          &website.ID,
		Name:               "Drafts",
		DisplayOrder:       1,
		InheritPermissions: true,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create folder: %v", err)
	}
	if _, err := ruleService.CreateRule(ctx, &services.CreateRuleRequest{
		UserID:   seedUserID,
		FolderID: drafts.ID,
		Name:     "Landing Page Tone",
		Content:  "Marketing copy stays in second person. Avoid jargon; a visitor who has never heard of the product should understand the hero section.",
	}); err != nil {
		log.Fatalf("❌ Failed to create rule: %v", err)
	}
	log.Printf("✅ Created project-local folder %s with one rule", drafts.Name)

	// Group with an explicit folder grant
	reviewers, err := groupService.CreateGroup(ctx, seedUserID, account.ID, &services.CreateGroupRequest{
		Name:        "Reviewers",
		Description: "Members who curate the shared standards",
	})
	if err != nil {
		log.Fatalf("❌ Failed to create group: %v", err)
	}
	if err := groupService.AddGroupMember(ctx, seedUserID, reviewers.ID, secondUserID); err != nil {
		log.Fatalf("❌ Failed to add group member: %v", err)
	}
	if _, err := permissionService.Grant(ctx, seedUserID, &services.GrantRequest{
		ResourceType:   models.ResourceFolder,
		ResourceID:     standards.ID,
		TargetType:     models.TargetGroup,
		TargetID:       reviewers.ID,
		PermissionType: models.PermissionWrite,
	}); err != nil {
		log.Fatalf("❌ Failed to grant permission: %v", err)
	}
	log.Printf("✅ Created group %s with write grant on %s", reviewers.Name, standards.Name)

	log.Println("🎉 Seeding complete!")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")
	if err != nil {
		return err
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Accounts + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			plan TEXT NOT NULL DEFAULT 'free',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Memberships + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			account_id UUID NOT NULL REFERENCES ` + tables.Accounts + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(account_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Groups + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.GroupMembers + ` (
			group_id UUID NOT NULL REFERENCES ` + tables.Groups + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			PRIMARY KEY(group_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.AccountGroups + ` (
			account_id UUID NOT NULL REFERENCES ` + tables.Accounts + `(id) ON DELETE CASCADE,
			group_id UUID NOT NULL REFERENCES ` + tables.Groups + `(id) ON DELETE CASCADE,
			PRIMARY KEY(account_id, group_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Projects + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			account_id UUID NOT NULL REFERENCES ` + tables.Accounts + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			inheritance_mode TEXT NOT NULL DEFAULT 'partial',
			inherit_permissions BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(account_id, slug)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Folders + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			account_id UUID REFERENCES ` + tables.Accounts + `(id) ON DELETE CASCADE,
			project_id UUID REFERENCES ` + tables.Projects + `(id) ON DELETE CASCADE,
			parent_folder_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			display_order INTEGER NOT NULL DEFAULT 0,
			sync_status TEXT NOT NULL DEFAULT 'local',
			source_of_truth TEXT NOT NULL DEFAULT 'project',
			inherited_from UUID,
			inherit_permissions BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			CHECK (account_id IS NOT NULL OR project_id IS NOT NULL)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Rules + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			folder_id UUID NOT NULL REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			content TEXT NOT NULL,
			usage_count INTEGER NOT NULL DEFAULT 0,
			sync_status TEXT NOT NULL DEFAULT 'local',
			source_of_truth TEXT NOT NULL DEFAULT 'project',
			inherited_from UUID,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Permissions + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			resource_type TEXT NOT NULL,
			resource_id UUID NOT NULL,
			target_type TEXT NOT NULL,
			target_id UUID NOT NULL,
			permission_type TEXT NOT NULL,
			granted_by UUID NOT NULL,
			granted_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(resource_type, resource_id, target_type, target_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `memberships_user ON ` + tables.Memberships + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_account ON ` + tables.Folders + `(account_id) WHERE project_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_project ON ` + tables.Folders + `(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_inherited_from ON ` + tables.Folders + `(inherited_from)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_synced_pair ON ` + tables.Folders + `(project_id, inherited_from) WHERE sync_status = 'synced'`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `rules_folder ON ` + tables.Rules + `(folder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `permissions_resource ON ` + tables.Permissions + `(resource_type, resource_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `permissions_target ON ` + tables.Permissions + `(target_type, target_id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Permissions,
		tables.Rules,
		tables.Folders,
		tables.Projects,
		tables.AccountGroups,
		tables.GroupMembers,
		tables.Groups,
		tables.Memberships,
		tables.Accounts,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearSeedData removes the demo account; FK cascades take everything scoped
// under it. Orphaned groups and permission rows are swept separately because
// they have no FK back to the account.
func clearSeedData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Accounts+" WHERE slug = $1", "acme-engineering"); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx,
		"DELETE FROM "+tables.Groups+" WHERE id NOT IN (SELECT group_id FROM "+tables.AccountGroups+")"); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx,
		"DELETE FROM "+tables.Permissions+" WHERE resource_id NOT IN (SELECT id FROM "+tables.Folders+") AND resource_id NOT IN (SELECT id FROM "+tables.Projects+")"); err != nil {
		return err
	}
	return nil
}

func seedRules(userID, standardsID, securityID, playbooksID string) []*services.CreateRuleRequest {
	return []*services.CreateRuleRequest{
		{
			UserID:   userID,
			FolderID: standardsID,
			Name:     "Code Review Checklist",
			Content: "Every pull request needs a reviewer outside the authoring team for shared packages. " +
				"Check error handling paths first; happy paths rarely break in review. " +
				"Block merges that add a dependency without a line in the PR description explaining why.",
		},
		{
			UserID:   userID,
			FolderID: standardsID,
			Name:     "API Style Guide",
			Content: "Endpoints are nouns, actions are HTTP verbs. Responses always wrap payloads in the standard envelope. " +
				"Breaking changes require a version bump and a deprecation window of at least one release.",
		},
		{
			UserID:   userID,
			FolderID: securityID,
			Name:     "Secrets Handling",
			Content: "Never commit credentials, even for test environments. Rotate any secret that touches a log line. " +
				"All tokens go through the vault; local .env files are for developer machines only.",
		},
		{
			UserID:   userID,
			FolderID: securityID,
			Name:     "Dependency Audit",
			Content: "Run the vulnerability scan before every release cut. New transitive dependencies with install scripts " +
				"need a manual look before they land on CI.",
		},
		{
			UserID:   userID,
			FolderID: playbooksID,
			Name:     "Incident Response",
			Content: "Page the on-call first, write the timeline second. Every customer-visible incident gets a retro " +
				"within five working days, blameless and with at least one tracked action item.",
		},
	}
}
