// Package config reads the CLI configuration file.
//
// A configuration file is YAML:
//
//	backend: sqlite        # memory | sqlite | postgres
//	dsn: data/app.db       # file path for sqlite, connection string for postgres
//	schema_dir: schema     # directory of CUE entity declarations
//	log_level: info        # debug | info | warn | error
//
// Relative dsn and schema_dir paths are resolved against the directory of
// the configuration file.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Backends lists the valid backend names.
var Backends = []string{BackendMemory, BackendSQLite, BackendPostgres}

// Config is the CLI configuration.
type Config struct {
	// Backend selects where query runs: memory, sqlite or postgres.
	Backend string `yaml:"backend"`

	// DSN is the sqlite database path or the postgres connection string.
	// Unused for memory.
	DSN string `yaml:"dsn,omitempty"`

	// SchemaDir holds the CUE entity declarations.
	SchemaDir string `yaml:"schema_dir,omitempty"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns the configuration used without a file: an in-memory
// backend, schema in ./schema, info logging.
func Default() Config {
	return Config{
		Backend:   BackendMemory,
		SchemaDir: "schema",
		LogLevel:  "info",
	}
}

// Load reads path over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.SchemaDir = resolve(base, cfg.SchemaDir)
	if cfg.Backend == BackendSQLite && cfg.DSN != ":memory:" {
		cfg.DSN = resolve(base, cfg.DSN)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks the backend, its DSN and the log level.
func (c Config) Validate() error {
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("backend %q: must be one of %v", c.Backend, Backends)
	}
	if c.Backend != BackendMemory && c.DSN == "" {
		return fmt.Errorf("backend %s requires a dsn", c.Backend)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level is info.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
