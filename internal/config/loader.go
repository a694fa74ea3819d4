package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFileName is the standard configuration file name.
	DefaultConfigFileName = "osmo.toml"

	// XDGSubdir is the subdirectory under the XDG config and data homes.
	XDGSubdir = "osmo"
)

// LoadError represents an error that occurred while loading configuration.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading config from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load resolves the configuration in order of precedence:
//  1. explicit path (if provided)
//  2. $XDG_CONFIG_HOME/osmo/osmo.toml
//  3. ./osmo.toml
//  4. defaults, written to disk when createDefault is set
//
// OSMO_* environment variables are applied on top before validation.
// Returns the configuration and the path it was loaded from.
func Load(explicitPath string, createDefault bool) (*Config, string, error) {
	cfg, path, err := locate(explicitPath, createDefault)
	if err != nil {
		return nil, "", err
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, "", fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", &LoadError{Path: path, Err: fmt.Errorf("validating config: %w", err)}
	}

	return cfg, path, nil
}

func locate(explicitPath string, createDefault bool) (*Config, string, error) {
	path := ConfigPath(explicitPath)
	if explicitPath != "" || fileExists(path) {
		cfg, err := loadFromFile(path)
		if err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
		return cfg, path, nil
	}

	if !createDefault {
		return nil, "", errors.New("no configuration file found; searched: " + xdgConfigPath() + ", " + DefaultConfigFileName)
	}

	cfg := Default()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		path = filepath.Join(".", DefaultConfigFileName)
	}
	if err := Save(cfg, path); err != nil {
		// Keep running on the in-memory defaults.
		return cfg, "", nil
	}

	return cfg, path, nil
}

// loadFromFile decodes a TOML file on top of the defaults.
func loadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	return cfg, nil
}

// Save writes a configuration to a TOML file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header := `# osmo configuration
#
# Generated on first start. Values may be overridden with OSMO_* variables
# or a .env file passed via -env.

`
	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}

	return nil
}

func xdgConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, XDGSubdir, DefaultConfigFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", XDGSubdir, DefaultConfigFileName)
}

func xdgDataDir() string {
	xdgData := os.Getenv("XDG_DATA_HOME")
	if xdgData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgData = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(xdgData, XDGSubdir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ConfigPath returns the configuration file path that would be used: the
// explicit path, an existing XDG or working-directory file, or the XDG
// path a default file would be created at.
func ConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	xdgPath := xdgConfigPath()
	if xdgPath != "" && fileExists(xdgPath) {
		return xdgPath
	}

	cwdPath := filepath.Join(".", DefaultConfigFileName)
	if fileExists(cwdPath) {
		return cwdPath
	}

	if xdgPath != "" {
		return xdgPath
	}

	return cwdPath
}

// EnsureDataDir resolves the database path, creating its directory.
// Relative paths are placed under the XDG data home when available.
func EnsureDataDir(cfg *Config) (string, error) {
	dbPath := cfg.Database.Path

	if filepath.IsAbs(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return "", fmt.Errorf("creating database directory: %w", err)
		}
		return dbPath, nil
	}

	if dataDir := xdgDataDir(); dataDir != "" {
		if err := os.MkdirAll(dataDir, 0750); err != nil {
			return dbPath, nil
		}
		return filepath.Join(dataDir, dbPath), nil
	}

	return dbPath, nil
}

// EnsureLogDir creates the log directory if needed.
// An empty path disables file logging.
func EnsureLogDir(cfg *Config) (string, error) {
	logPath := cfg.Logging.File
	if logPath == "" {
		return "", nil
	}

	dir := filepath.Dir(logPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("creating log directory: %w", err)
		}
	}

	return logPath, nil
}

// BackupDir returns the directory for database backups, next to the database.
func BackupDir(cfg *Config) (string, error) {
	var backupDir string
	switch {
	case filepath.IsAbs(cfg.Database.Path):
		backupDir = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
	case xdgDataDir() != "":
		backupDir = filepath.Join(xdgDataDir(), "backups")
	default:
		backupDir = "backups"
	}

	if err := os.MkdirAll(backupDir, 0750); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	return backupDir, nil
}
