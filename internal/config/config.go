// Package config defines the explicit configuration model for the cricstats
// application. Values are read once from the environment by the caller and
// passed down as a struct; no package in this repository reads configuration
// at import time or holds process-wide settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	// Database holds the Postgres connection settings.
	Database Database

	// DataDir is the root directory for downloaded and extracted data.
	// Archives land in DataDir/01_raw, extracted files in DataDir/02_unzipped.
	DataDir string
}

// Database holds Postgres connection settings. The insertion engine never
// reads these; they exist only to build the DSN handed to the connection
// constructor.
type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// DSN renders a postgres connection URL for pgx.
func (d Database) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	return u.String()
}

// FromEnv builds a Config from POSTGRES_* and CRICSTATS_DATA_DIR environment
// variables, applying defaults for the optional values.
func FromEnv() Config {
	return Config{
		Database: Database{
			Host:     envOr("POSTGRES_HOST", "localhost"),
			Port:     envOr("POSTGRES_PORT", "5432"),
			Name:     os.Getenv("POSTGRES_DB"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
		},
		DataDir: envOr("CRICSTATS_DATA_DIR", "data"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// RawDir returns the directory downloaded archives are written to.
func (c Config) RawDir() string { return filepath.Join(c.DataDir, "01_raw") }

// UnzippedDir returns the directory archives are extracted into.
func (c Config) UnzippedDir() string { return filepath.Join(c.DataDir, "02_unzipped") }

// String renders the config with the password masked, for log lines.
func (c Config) String() string {
	return fmt.Sprintf("db=%s@%s:%s/%s data_dir=%s",
		c.Database.User, c.Database.Host, c.Database.Port, c.Database.Name, c.DataDir)
}
