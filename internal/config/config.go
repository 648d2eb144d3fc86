// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Import   ImportConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds non-import requests (default: 60s).
	// Import requests run under Import.Timeout instead.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
// Only used when Store.Driver is "postgres".
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
)

// StoreConfig selects where orders are persisted.
type StoreConfig struct {
	// Driver is one of postgres, bolt or memory (default: postgres)
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// BoltPath is the database file for the bolt driver (default: orders.db)
	BoltPath string `env:"STORE_BOLT_PATH" default:"orders.db"`
}

// ImportConfig holds import processing settings.
type ImportConfig struct {
	// BaseDir is the directory import files are resolved against. Requests
	// naming a file outside it are rejected. (default: data)
	BaseDir string `env:"IMPORT_BASE_DIR" default:"data"`

	// Chunk sizes in bytes. Out-of-range values are clamped by the importer.
	DelimitedChunkSize int `env:"IMPORT_DELIMITED_CHUNK_SIZE" default:"50000"`
	ElementChunkSize   int `env:"IMPORT_ELEMENT_CHUNK_SIZE" default:"10000"`

	// ColumnSeparator and LineSeparator accept Go escapes such as \t and \r\n.
	ColumnSeparator string `env:"IMPORT_COLUMN_SEPARATOR" default:"\\t"`
	LineSeparator   string `env:"IMPORT_LINE_SEPARATOR" default:"\\n"`

	// ElementName is the repeating tag of element feeds (default: item)
	ElementName string `env:"IMPORT_ELEMENT_NAME" default:"item"`

	// RevenueMarker is the event type value of rows that are imported.
	RevenueMarker string `env:"IMPORT_REVENUE_MARKER" default:"Winning Bid (Revenue)"`

	// ProfilePath is an optional YAML file overriding the delimited layout.
	ProfilePath string `env:"IMPORT_PROFILE"`

	// MaxConcurrent is the maximum number of parallel imports (default: 1)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single import (default: 30m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"30m"`

	// HistorySize is how many finished runs are kept for inspection (default: 100)
	HistorySize int `env:"IMPORT_HISTORY_SIZE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey guards the import-triggering endpoint (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted X-API-Key values
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
