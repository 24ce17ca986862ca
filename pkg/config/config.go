// Package config loads starcat configuration from config.yaml with
// environment variable overrides.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the catalog loader.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values for fields
// that support both. Secrets (the database password) must only come from
// environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// MigrationsPath is the directory holding the schema DDL migrations,
	// applied before any load runs.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Catalog is the remote TAP service the loader fetches from.
	Catalog CatalogConfig `yaml:"catalog"`

	// Load describes the column mapping from the remote result table to the
	// catalog schema.
	Load LoadConfig `yaml:"load"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"starcat"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"starcat"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
}

// CatalogConfig holds the remote catalog query service configuration.
type CatalogConfig struct {
	// BaseURL is the TAP service root, e.g.
	// "https://gea.esac.esa.int/tap-server/tap". Queries go to <BaseURL>/sync.
	BaseURL string `yaml:"base_url" env:"CATALOG_BASE_URL"`

	// TimeoutSeconds bounds one HTTP round-trip to the service.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"CATALOG_TIMEOUT_SECONDS" env-default:"60"`

	// MaxAttempts bounds fetch attempts on transient failures (429/5xx,
	// timeouts). The run still aborts once attempts are exhausted.
	MaxAttempts int `yaml:"max_attempts" env:"CATALOG_MAX_ATTEMPTS" env-default:"3"`
}

// AttributeMapping pairs one source result column with the taxonomy
// criterion its values are stored under.
type AttributeMapping struct {
	Column    string `yaml:"column"`
	Criterion string `yaml:"criterion"`
}

// LoadConfig describes one load run: which remote table to query, how many
// rows, and how result columns map onto schema columns.
type LoadConfig struct {
	// ObjectType is the taxonomy type ingested objects are filed under.
	ObjectType string `yaml:"object_type" env:"LOAD_OBJECT_TYPE" env-default:"Star"`

	// NamePrefix is prepended to the source identifier to synthesize the
	// unique object name ("Gaia-" + 12345 -> "Gaia-12345").
	NamePrefix string `yaml:"name_prefix" env:"LOAD_NAME_PREFIX" env-default:"Gaia-"`

	// DesignationPrefix builds the IAU-style star designation
	// ("Gaia DR3" + 12345 -> "Gaia DR3 12345").
	DesignationPrefix string `yaml:"designation_prefix" env:"LOAD_DESIGNATION_PREFIX" env-default:"Gaia DR3"`

	// SourceTable is the remote table the ADQL query selects from.
	SourceTable string `yaml:"source_table" env:"LOAD_SOURCE_TABLE" env-default:"gaiadr3.gaia_source"`

	// Column names in the remote result set.
	SourceIDColumn string `yaml:"source_id_column" env:"LOAD_SOURCE_ID_COLUMN" env-default:"source_id"`
	RAColumn       string `yaml:"ra_column" env:"LOAD_RA_COLUMN" env-default:"ra"`
	DecColumn      string `yaml:"dec_column" env:"LOAD_DEC_COLUMN" env-default:"dec"`

	// ConstellationColumn optionally names a result column carrying a
	// constellation name; empty means the source has none.
	ConstellationColumn string `yaml:"constellation_column" env:"LOAD_CONSTELLATION_COLUMN" env-default:""`

	// Filter is an optional ADQL WHERE clause fragment.
	Filter string `yaml:"filter" env:"LOAD_FILTER" env-default:""`

	// RowLimit bounds the fetched result set (ADQL TOP n).
	RowLimit int `yaml:"row_limit" env:"LOAD_ROW_LIMIT" env-default:"100"`

	// Attributes maps photometric/astrometric result columns to taxonomy
	// criterion names. YAML only; there is no env form for lists.
	Attributes []AttributeMapping `yaml:"attributes"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. Secrets (PGPASSWORD) must come from environment variables
// (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields the loader cannot run without.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if _, err := url.Parse(c.Catalog.BaseURL); err != nil {
		return fmt.Errorf("catalog.base_url is not a valid URL: %w", err)
	}
	if c.Load.SourceTable == "" {
		return fmt.Errorf("load.source_table is required")
	}
	if c.Load.ObjectType == "" {
		return fmt.Errorf("load.object_type is required")
	}
	if c.Load.RowLimit <= 0 {
		return fmt.Errorf("load.row_limit must be positive, got %d", c.Load.RowLimit)
	}
	for i, attr := range c.Load.Attributes {
		if attr.Column == "" || attr.Criterion == "" {
			return fmt.Errorf("load.attributes[%d]: column and criterion are both required", i)
		}
	}
	return nil
}

// Timeout returns the catalog HTTP timeout as a duration.
func (c *CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form with credentials escaped,
// as golang-migrate and pgxpool expect. Passwords may contain characters
// that break URL parsing unless escaped.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		c.SSLMode,
	)
}
