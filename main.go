package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skyatlas/starcat/pkg/catalog"
	"github.com/skyatlas/starcat/pkg/config"
	"github.com/skyatlas/starcat/pkg/database"
	"github.com/skyatlas/starcat/pkg/logging"
	"github.com/skyatlas/starcat/pkg/repositories"
	"github.com/skyatlas/starcat/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure at exit is harmless

	logger.Info("Starting starcat loader",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.String("catalog", cfg.Catalog.BaseURL),
		zap.String("source_table", cfg.Load.SourceTable))

	if err := run(cfg, logger); err != nil {
		// Connection errors can echo the DSN, password included.
		logger.Fatal("Load run failed", zap.String("error", logging.SanitizeError(err)))
	}
}

// run wires the loader and executes one load. Fatal conditions surface as
// errors; row-level conditions are counted inside the loader instead.
func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// Migrations run over database/sql; the pgx pool below serves the
	// repositories.
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		sqlDB.Close() //nolint:errcheck // the migration error is the one to report
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close migration connection: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	catalogClient, err := catalog.NewClient(&catalog.Config{
		BaseURL:     cfg.Catalog.BaseURL,
		Timeout:     cfg.Catalog.Timeout(),
		MaxAttempts: cfg.Catalog.MaxAttempts,
	}, logger)
	if err != nil {
		return err
	}

	taxonomyService := services.NewTaxonomyService(repositories.NewTaxonomyRepository(db), logger)
	loader := services.NewLoaderService(&cfg.Load, catalogClient, taxonomyService,
		repositories.NewObjectRepository(db), logger)

	report, err := loader.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("starcat finished", zap.String("run_id", report.RunID.String()))
	return nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	logConfig := zap.NewProductionConfig()
	if cfg.Env == "local" {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	return logConfig.Build()
}
