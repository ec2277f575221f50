// Package config provides configuration management for the research catalog service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "RESEARCHDB"

// Config holds all configuration for the research catalog service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Import contains CSV import pipeline settings.
	Import ImportConfig `mapstructure:"import"`
	// Archive contains S3 export archive settings.
	Archive ArchiveConfig `mapstructure:"archive"`
	// Events contains Kafka catalog event settings.
	Events EventsConfig `mapstructure:"events"`
	// Reconcile contains identifier drift reconciliation settings.
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	// Imports run inside the request, so this must cover a full import.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// URL is a full connection string. When set it takes precedence over the
	// individual fields (loaded from RESEARCHDB_DATABASE_URL or DATABASE_URL).
	URL string `mapstructure:"-"`
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from RESEARCHDB_DATABASE_PASSWORD).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is a directory of migration files. Empty selects the
	// migrations compiled into the binary.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// ArticleChunkSize is the number of article writes issued in parallel (default: 10).
	ArticleChunkSize int `mapstructure:"article_chunk_size"`
	// DependentWorkers bounds concurrent dependent-record writes (default: 16).
	DependentWorkers int `mapstructure:"dependent_workers"`
	// WritesPerSecond throttles dependent-record writes; 0 disables throttling.
	WritesPerSecond float64 `mapstructure:"writes_per_second"`
	// MaxUploadBytes caps the accepted CSV size (default: 32 MiB).
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	// RequestsPerMinute limits import requests accepted by the API (default: 6).
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
}

// ArchiveConfig holds S3-compatible storage settings for export archives.
type ArchiveConfig struct {
	// Enabled turns on the archive endpoint.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the S3 endpoint URL (empty for AWS).
	Endpoint string `mapstructure:"endpoint"`
	// Region is the signing region.
	Region string `mapstructure:"region"`
	// Bucket is the target bucket.
	Bucket string `mapstructure:"bucket"`
	// Prefix is prepended to every object key.
	Prefix string `mapstructure:"prefix"`
	// AccessKey is loaded from RESEARCHDB_ARCHIVE_ACCESS_KEY.
	AccessKey string `mapstructure:"-"`
	// SecretKey is loaded from RESEARCHDB_ARCHIVE_SECRET_KEY.
	SecretKey string `mapstructure:"-"`
}

// EventsConfig holds Kafka publisher settings for catalog events.
type EventsConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic to publish catalog events to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// ReconcileConfig holds identifier drift reconciliation settings.
type ReconcileConfig struct {
	// Enabled schedules the drift check inside the server.
	Enabled bool `mapstructure:"enabled"`
	// Schedule is a cron expression (default: daily at 03:00).
	Schedule string `mapstructure:"schedule"`
	// AutoApply repairs drift from the scheduler instead of only reporting it.
	AutoApply bool `mapstructure:"auto_apply"`
	// DuplicateThreshold is the minimum name similarity reported as a likely duplicate author.
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from a .env file, environment variables and config files.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-catalog")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv populates the process environment from a dotenv file.
// Variables already set in the environment win; a missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
	cfg.Database.URL = os.Getenv(EnvPrefix + "_DATABASE_URL")
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	cfg.Archive.AccessKey = os.Getenv(EnvPrefix + "_ARCHIVE_ACCESS_KEY")
	cfg.Archive.SecretKey = os.Getenv(EnvPrefix + "_ARCHIVE_SECRET_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "researchdb")
	v.SetDefault("database.name", "research_catalog")
	// Default to "require" for production security. Use RESEARCHDB_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30s")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "2s")
	v.SetDefault("database.migration_path", "")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "research_catalog")

	// Import defaults
	v.SetDefault("import.article_chunk_size", 10)
	v.SetDefault("import.dependent_workers", 16)
	v.SetDefault("import.writes_per_second", 0)
	v.SetDefault("import.max_upload_bytes", 32<<20)
	v.SetDefault("import.requests_per_minute", 6)

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "exports/")

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "events.research_catalog")
	v.SetDefault("events.batch_size", 100)
	v.SetDefault("events.batch_timeout", "10ms")

	// Reconcile defaults
	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.schedule", "0 3 * * *")
	v.SetDefault("reconcile.auto_apply", false)
	v.SetDefault("reconcile.duplicate_threshold", 0.9)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.URL == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate import config
	if c.Import.ArticleChunkSize <= 0 {
		return fmt.Errorf("import article_chunk_size must be positive")
	}
	if c.Import.DependentWorkers <= 0 {
		return fmt.Errorf("import dependent_workers must be positive")
	}
	if c.Import.WritesPerSecond < 0 {
		return fmt.Errorf("import writes_per_second must not be negative")
	}
	if c.Import.MaxUploadBytes <= 0 {
		return fmt.Errorf("import max_upload_bytes must be positive")
	}

	// Validate archive config
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive bucket is required when archive is enabled")
	}

	// Validate events config
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events brokers are required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events topic is required when events are enabled")
		}
	}

	// Validate reconcile config
	if c.Reconcile.Enabled && c.Reconcile.Schedule == "" {
		return fmt.Errorf("reconcile schedule is required when reconcile is enabled")
	}
	if c.Reconcile.DuplicateThreshold < 0 || c.Reconcile.DuplicateThreshold > 1 {
		return fmt.Errorf("reconcile duplicate_threshold must be between 0 and 1")
	}

	return nil
}
