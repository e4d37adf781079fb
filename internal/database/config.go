package database

import (
	"smartspend/internal/config"
)

// Drivers supported by NewManager.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds database configuration
type Config struct {
	Driver         string
	DSN            string
	MigrateURL     string
	MigrationsPath string
}

// NewConfig derives the database configuration from the application config.
func NewConfig(cfg *config.Config) *Config {
	if cfg.DBDriver == DriverSQLite {
		return &Config{
			Driver: DriverSQLite,
			DSN:    cfg.SQLitePath + "?_foreign_keys=1",
		}
	}
	return &Config{
		Driver:         DriverPostgres,
		DSN:            cfg.PostgresDSN(),
		MigrateURL:     cfg.PostgresURL(),
		MigrationsPath: "file://migrations",
	}
}
