package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"rulebase/internal/auth"
	"rulebase/internal/config"
	"rulebase/internal/handler"
	"rulebase/internal/middleware"
	"rulebase/internal/repository/postgres"
	"rulebase/internal/service"
	"rulebase/internal/service/hierarchy"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	limits, err := config.LoadLimits()
	if err != nil {
		log.Fatalf("Failed to load plan limits: %v", err)
	}

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)

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

	// Shared concurrency primitives: one mutex per account serializes tree
	// mutations, the LRU cache memoizes account folder snapshots for reads.
	locker := hierarchy.NewAccountLocker()
	treeCache, err := hierarchy.NewTreeCache(cfg.TreeCacheSize)
	if err != nil {
		log.Fatalf("Failed to create tree cache: %v", err)
	}

	authorizer := service.NewAuthorizer(permRepo, memberRepo, groupRepo, folderRepo, projectRepo, logger)

	accountService := service.NewAccountService(accountRepo, memberRepo, txManager, authorizer, logger)
	membershipService := service.NewMembershipService(memberRepo, authorizer, logger)
	groupService := service.NewGroupService(groupRepo, accountRepo, txManager, authorizer, limits, logger)
	projectService := service.NewProjectService(projectRepo, folderRepo, ruleRepo, permRepo, accountRepo, txManager, locker, authorizer, limits, logger)
	folderService := service.NewFolderService(folderRepo, ruleRepo, permRepo, projectRepo, accountRepo, txManager, locker, treeCache, authorizer, limits, logger)
	ruleService := service.NewRuleService(ruleRepo, folderRepo, projectRepo, accountRepo, txManager, locker, authorizer, limits, logger)
	syncService := service.NewSyncService(folderRepo, ruleRepo, projectRepo, txManager, locker, authorizer, logger)
	treeService := service.NewTreeService(folderRepo, ruleRepo, projectRepo, treeCache, authorizer, logger)
	permissionService := service.NewPermissionService(permRepo, memberRepo, groupRepo, folderRepo, projectRepo, logger)

	accountHandler := handler.NewAccountHandler(accountService, treeService, logger)
	memberHandler := handler.NewMemberHandler(membershipService, logger)
	groupHandler := handler.NewGroupHandler(groupService, logger)
	projectHandler := handler.NewProjectHandler(projectService, treeService, logger)
	folderHandler := handler.NewFolderHandler(folderService, syncService, logger)
	ruleHandler := handler.NewRuleHandler(ruleService, logger)
	permissionHandler := handler.NewPermissionHandler(permissionService, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", accountHandler.HealthCheck)

	// Account routes
	mux.HandleFunc("POST /api/accounts", accountHandler.CreateAccount)
	mux.HandleFunc("GET /api/accounts", accountHandler.ListAccounts)
	mux.HandleFunc("GET /api/accounts/{id}", accountHandler.GetAccount)
	mux.HandleFunc("PATCH /api/accounts/{id}", accountHandler.UpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", accountHandler.DeleteAccount)
	mux.HandleFunc("GET /api/accounts/{id}/tree", accountHandler.GetAccountTree)

	// Membership routes
	mux.HandleFunc("GET /api/accounts/{id}/members", memberHandler.ListMembers)
	mux.HandleFunc("POST /api/accounts/{id}/members", memberHandler.AddMember)
	mux.HandleFunc("PATCH /api/accounts/{id}/members/{userID}", memberHandler.ChangeRole)
	mux.HandleFunc("DELETE /api/accounts/{id}/members/{userID}", memberHandler.RemoveMember)

	// Group routes
	mux.HandleFunc("POST /api/accounts/{id}/groups", groupHandler.CreateGroup)
	mux.HandleFunc("GET /api/accounts/{id}/groups", groupHandler.ListGroups)
	mux.HandleFunc("PUT /api/accounts/{id}/groups/{groupID}", groupHandler.AssociateGroup)
	mux.HandleFunc("DELETE /api/accounts/{id}/groups/{groupID}", groupHandler.UnlinkGroup)
	mux.HandleFunc("GET /api/groups/{id}", groupHandler.GetGroup)
	mux.HandleFunc("PATCH /api/groups/{id}", groupHandler.UpdateGroup)
	mux.HandleFunc("DELETE /api/groups/{id}", groupHandler.DeleteGroup)
	mux.HandleFunc("POST /api/groups/{id}/members", groupHandler.AddGroupMember)
	mux.HandleFunc("DELETE /api/groups/{id}/members/{userID}", groupHandler.RemoveGroupMember)

	// Project routes
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/accounts/{id}/projects", projectHandler.ListProjects)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", projectHandler.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projectHandler.DeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/tree", projectHandler.GetTree)
	mux.HandleFunc("GET /api/projects/{id}/sync-impact", projectHandler.GetSyncImpact)

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders", folderHandler.ListFolders)
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folderHandler.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("POST /api/folders/{id}/move", folderHandler.MoveFolder)
	mux.HandleFunc("POST /api/folders/{id}/sync", folderHandler.SyncFolder)
	mux.HandleFunc("POST /api/folders/{id}/detach", folderHandler.DetachFolder)
	mux.HandleFunc("POST /api/folders/{id}/resync", folderHandler.ResyncFolder)

	// Rule routes
	mux.HandleFunc("POST /api/folders/{id}/rules", ruleHandler.CreateRule)
	mux.HandleFunc("GET /api/folders/{id}/rules", ruleHandler.ListRules)
	mux.HandleFunc("GET /api/rules/{id}", ruleHandler.GetRule)
	mux.HandleFunc("PATCH /api/rules/{id}", ruleHandler.UpdateRule)
	mux.HandleFunc("DELETE /api/rules/{id}", ruleHandler.DeleteRule)
	mux.HandleFunc("POST /api/rules/{id}/detach", ruleHandler.DetachRule)
	mux.HandleFunc("POST /api/rules/{id}/resync", ruleHandler.ResyncRule)
	mux.HandleFunc("POST /api/rules/{id}/usage", ruleHandler.RecordUsage)

	// Permission routes
	mux.HandleFunc("GET /api/projects/{id}/permissions", permissionHandler.ListProjectPermissions)
	mux.HandleFunc("GET /api/projects/{id}/permissions/effective", permissionHandler.ResolveProjectPermission)
	mux.HandleFunc("GET /api/folders/{id}/permissions", permissionHandler.ListFolderPermissions)
	mux.HandleFunc("GET /api/folders/{id}/permissions/effective", permissionHandler.ResolveFolderPermission)
	mux.HandleFunc("POST /api/permissions", permissionHandler.Grant)
	mux.HandleFunc("PATCH /api/permissions/{id}", permissionHandler.UpdateGrant)
	mux.HandleFunc("DELETE /api/permissions/{id}", permissionHandler.Revoke)
	mux.HandleFunc("PUT /api/permissions/inherit", permissionHandler.ToggleInherit)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.AuthMiddleware(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
