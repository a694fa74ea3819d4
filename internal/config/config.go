// Package config provides configuration management for osmo.
// Configurations are loaded from TOML files with XDG-compliant paths and
// may be overridden from the environment or a .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration.
type Config struct {
	Plant      PlantConfig      `toml:"plant"`
	Production ProductionConfig `toml:"production"`
	Display    DisplayConfig    `toml:"display"`
	Logging    LoggingConfig    `toml:"logging"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
}

// PlantConfig identifies the site and the operator recorded in the activity log.
type PlantConfig struct {
	Name     string `toml:"name"`
	Operator string `toml:"operator"`
}

// ProductionConfig tunes the allocation engine.
type ProductionConfig struct {
	// Tolerance is the residue below which a requirement counts as met.
	Tolerance        string `toml:"tolerance"`
	DefaultBatchSize int    `toml:"default_batch_size"`
	RecentOrders     int    `toml:"recent_orders"`
}

// DisplayConfig controls TUI appearance.
type DisplayConfig struct {
	ColorScheme ColorScheme `toml:"color_scheme"`
	DateFormat  string      `toml:"date_format"`
	TimeFormat  string      `toml:"time_format"`
}

// ColorScheme defines the terminal color palette.
type ColorScheme string

const (
	ColorSchemeGreen ColorScheme = "green"
	ColorSchemeAmber ColorScheme = "amber"
	ColorSchemeWhite ColorScheme = "white"
)

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level LogLevel `toml:"level"`
	File  string   `toml:"file"`
}

// LogLevel defines logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// DatabaseConfig controls SQLite database settings.
type DatabaseConfig struct {
	Path                string `toml:"path"`
	BusyTimeoutMS       int    `toml:"busy_timeout_ms"`
	BackupRetentionDays int    `toml:"backup_retention_days"`
}

// ServerConfig controls the JSON API.
type ServerConfig struct {
	Enabled bool       `toml:"enabled"`
	Addr    string     `toml:"addr"`
	Mode    ServerMode `toml:"mode"`
}

// ServerMode maps onto gin's run modes.
type ServerMode string

const (
	ServerModeDebug   ServerMode = "debug"
	ServerModeRelease ServerMode = "release"
	ServerModeTest    ServerMode = "test"
)

// SchedulerConfig holds cron specs for maintenance jobs.
// An empty spec disables the job.
type SchedulerConfig struct {
	Enabled            bool   `toml:"enabled"`
	BackupSchedule     string `toml:"backup_schedule"`
	StockCheckSchedule string `toml:"stock_check_schedule"`
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Plant.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("plant: %w", err))
	}

	if err := c.Production.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("production: %w", err))
	}

	if err := c.Display.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("display: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if err := c.Scheduler.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks that the plant configuration is valid.
func (p *PlantConfig) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// Validate checks that the production configuration is valid.
func (p *ProductionConfig) Validate() error {
	var errs []error

	tol, err := p.ToleranceDecimal()
	if err != nil {
		errs = append(errs, err)
	} else if tol.IsNegative() {
		errs = append(errs, errors.New("tolerance must be non-negative"))
	}

	if p.DefaultBatchSize < 0 {
		errs = append(errs, errors.New("default_batch_size must be non-negative"))
	}

	if p.RecentOrders < 0 {
		errs = append(errs, errors.New("recent_orders must be non-negative"))
	}

	return errors.Join(errs...)
}

// ToleranceDecimal parses the configured tolerance.
func (p *ProductionConfig) ToleranceDecimal() (decimal.Decimal, error) {
	if p.Tolerance == "" {
		return decimal.New(1, -3), nil
	}
	tol, err := decimal.NewFromString(p.Tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tolerance %q: %w", p.Tolerance, err)
	}
	return tol, nil
}

// Validate checks that the display configuration is valid.
func (d *DisplayConfig) Validate() error {
	switch d.ColorScheme {
	case "", ColorSchemeGreen, ColorSchemeAmber, ColorSchemeWhite:
		return nil
	default:
		return fmt.Errorf("invalid color_scheme: %s", d.ColorScheme)
	}
}

// Validate checks that the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "", LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return fmt.Errorf("invalid log level: %s", l.Level)
	}
}

// Validate checks that the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	var errs []error

	if d.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}

	if d.BusyTimeoutMS < 0 {
		errs = append(errs, errors.New("busy_timeout_ms must be non-negative"))
	}

	if d.BackupRetentionDays < 0 {
		errs = append(errs, errors.New("backup_retention_days must be non-negative"))
	}

	return errors.Join(errs...)
}

// Validate checks that the server configuration is valid.
func (s *ServerConfig) Validate() error {
	var errs []error

	if s.Enabled && s.Addr == "" {
		errs = append(errs, errors.New("addr is required when the server is enabled"))
	}

	switch s.Mode {
	case "", ServerModeDebug, ServerModeRelease, ServerModeTest:
	default:
		errs = append(errs, fmt.Errorf("invalid mode: %s", s.Mode))
	}

	return errors.Join(errs...)
}

// Validate checks that every configured cron spec parses.
func (s *SchedulerConfig) Validate() error {
	var errs []error

	specs := map[string]string{
		"backup_schedule":      s.BackupSchedule,
		"stock_check_schedule": s.StockCheckSchedule,
	}
	for _, name := range []string{"backup_schedule", "stock_check_schedule"} {
		spec := specs[name]
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, spec, err))
		}
	}

	return errors.Join(errs...)
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Plant: PlantConfig{
			Name:     "Main Plant",
			Operator: "operator",
		},
		Production: ProductionConfig{
			Tolerance:        "0.001",
			DefaultBatchSize: 1,
			RecentOrders:     20,
		},
		Display: DisplayConfig{
			ColorScheme: ColorSchemeGreen,
			DateFormat:  "2006-01-02",
			TimeFormat:  "15:04",
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
			File:  "logs/osmo.log",
		},
		Database: DatabaseConfig{
			Path:                "osmo.db",
			BusyTimeoutMS:       5000,
			BackupRetentionDays: 30,
		},
		Server: ServerConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8080",
			Mode:    ServerModeRelease,
		},
		Scheduler: SchedulerConfig{
			Enabled:            true,
			BackupSchedule:     "0 2 * * *",
			StockCheckSchedule: "*/30 * * * *",
		},
	}
}
