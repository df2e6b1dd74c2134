package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/auth"
	"github.com/quilldata/quill-engine/pkg/config"
	"github.com/quilldata/quill-engine/pkg/crypto"
	"github.com/quilldata/quill-engine/pkg/database"
	"github.com/quilldata/quill-engine/pkg/handlers"
	"github.com/quilldata/quill-engine/pkg/middleware"
	"github.com/quilldata/quill-engine/pkg/repositories"
	"github.com/quilldata/quill-engine/pkg/services"

	// Compiled-in datasource adapters.
	_ "github.com/quilldata/quill-engine/pkg/adapters/datasource/mysql"
	_ "github.com/quilldata/quill-engine/pkg/adapters/datasource/postgres"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.Int("query_timeout_seconds", cfg.Query.TimeoutSeconds),
	)

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to metadata database", zap.Error(err))
	}
	defer db.Close()

	// Migrations run over database/sql (required by golang-migrate).
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	encryptor, err := crypto.NewCredentialEncryptor(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("Failed to initialize credential encryptor", zap.Error(err))
	}

	connectionRepo := repositories.NewConnectionRepository(db)
	questionRepo := repositories.NewQuestionRepository(db)
	dashboardRepo := repositories.NewDashboardRepository(db)

	accessService := services.NewAccessService(dashboardRepo, logger)
	queryService := services.NewQueryService(
		questionRepo, connectionRepo, dashboardRepo,
		accessService, encryptor, cfg.Query.Timeout(), logger)

	shareTokens := auth.NewShareTokenService(cfg.ShareTokenSecret, 0)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewConnectionsHandler(connectionRepo, queryService, encryptor, logger).RegisterRoutes(mux)
	handlers.NewQuestionsHandler(questionRepo, queryService, cfg, logger).RegisterRoutes(mux)
	handlers.NewDashboardsHandler(dashboardRepo, queryService, shareTokens, cfg, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting quill-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
