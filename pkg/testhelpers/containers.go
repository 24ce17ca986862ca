// Package testhelpers provides the shared PostgreSQL testcontainer used by
// integration tests.
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/skyatlas/starcat/pkg/database"
)

// postgresImage is the stock image used for integration tests; the catalog
// schema is applied with the regular migration path on first use.
const postgresImage = "postgres:16-alpine"

// CatalogDB holds a shared test database with the catalog schema applied.
type CatalogDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	sharedCatalogDB     *CatalogDB
	sharedCatalogDBOnce sync.Once
	sharedCatalogDBErr  error
)

// GetCatalogDB returns a shared PostgreSQL container for integration tests.
// The container starts once per test run, has the schema migrated, and is
// reused by every test in the binary.
func GetCatalogDB(t *testing.T) *CatalogDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedCatalogDBOnce.Do(func() {
		sharedCatalogDB, sharedCatalogDBErr = setupCatalogDB()
	})

	if sharedCatalogDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedCatalogDBErr)
	}

	return sharedCatalogDB
}

func setupCatalogDB() (*CatalogDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "starcat_test",
			"POSTGRES_USER":     "starcat",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://starcat:test_password@%s:%s/starcat_test?sslmode=disable",
		host, port.Port())

	migrations, err := migrationsDir()
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, migrations, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &CatalogDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}

// ResetCatalog empties every catalog table and restarts the identity
// sequences, giving each test a clean database without restarting the
// container. Taxonomy tables are cleared too; tests reseed what they need.
func ResetCatalog(t *testing.T, db *database.DB) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(), `
		TRUNCATE TABLE
			celestial_objects_history,
			objects_criteria,
			objects_criteria_categories,
			stars_data,
			celestial_objects,
			stars_spectral_type_temperature,
			criteria_categories,
			criteria,
			constellations,
			object_types
		RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("Failed to reset catalog tables: %v", err)
	}
}

// migrationsDir resolves the repository's migrations directory relative to
// this source file, so integration tests work from any package directory.
func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testhelpers path")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations"), nil
}
