package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables recognised by ApplyEnvOverrides.
const (
	EnvDBPath         = "OSMO_DB_PATH"
	EnvLogLevel       = "OSMO_LOG_LEVEL"
	EnvHTTPAddr       = "OSMO_HTTP_ADDR"
	EnvHTTPEnabled    = "OSMO_HTTP_ENABLED"
	EnvBackupSchedule = "OSMO_BACKUP_SCHEDULE"
	EnvOperator       = "OSMO_OPERATOR"
)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set in the environment win. A missing default .env is
// not an error; a missing explicit file is.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides copies OSMO_* variables onto cfg.
func ApplyEnvOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvDBPath); ok && v != "" {
		cfg.Database.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = LogLevel(v)
	}
	if v, ok := os.LookupEnv(EnvHTTPAddr); ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := os.LookupEnv(EnvHTTPEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHTTPEnabled, err)
		}
		cfg.Server.Enabled = enabled
	}
	if v, ok := os.LookupEnv(EnvBackupSchedule); ok {
		cfg.Scheduler.BackupSchedule = v
	}
	if v, ok := os.LookupEnv(EnvOperator); ok && v != "" {
		cfg.Plant.Operator = v
	}
	return nil
}
