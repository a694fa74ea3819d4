// OSMO: production and warehouse management for small food plants.
//
// Runs the terminal UI by default, or the JSON API with -serve.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/api"
	"github.com/osmo/osmo/internal/config"
	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/database/seed"
	"github.com/osmo/osmo/internal/scheduler"
	"github.com/osmo/osmo/internal/services/activity"
	"github.com/osmo/osmo/internal/services/inventory"
	"github.com/osmo/osmo/internal/services/production"
	"github.com/osmo/osmo/internal/tui"
	"github.com/osmo/osmo/internal/util"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type options struct {
	configPath  string
	envPath     string
	migrateOnly bool
	seedData    bool
	serve       bool
	debug       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.envPath, "env", "", "Path to .env file (default ./.env if present)")
	flag.BoolVar(&opts.migrateOnly, "migrate-only", false, "Run migrations and exit")
	flag.BoolVar(&opts.seedData, "seed", false, "Load the demo catalogue into an empty database")
	flag.BoolVar(&opts.serve, "serve", false, "Run the HTTP API instead of the terminal UI")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("OSMO version %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		// Force exit after timeout
		time.AfterFunc(10*time.Second, func() {
			slog.Error("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	if err := run(ctx, opts); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if err := config.LoadEnvFile(opts.envPath); err != nil {
		return err
	}

	cfg, cfgPath, err := config.Load(opts.configPath, true)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	closeLog, err := setupLogging(cfg, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	slog.Info("OSMO starting",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cfgPath,
		"plant", cfg.Plant.Name,
	)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		slog.Info("closing database")
		if err := db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}()

	if opts.migrateOnly {
		slog.Info("migrations complete, exiting")
		return nil
	}

	if opts.seedData {
		return seedDatabase(ctx, db)
	}

	clock := util.SystemClock{}
	tolerance, err := cfg.Production.ToleranceDecimal()
	if err != nil {
		return fmt.Errorf("production tolerance: %w", err)
	}

	if opts.serve || cfg.Server.Enabled {
		return serve(ctx, db, cfg, clock, tolerance)
	}

	sched := startScheduler(cfg, db, inventory.NewService(db, inventory.Options{Clock: clock}))
	defer sched.Stop()

	tui.Version = Version
	tui.BuildTime = BuildTime

	slog.Info("starting TUI", "plant", cfg.Plant.Name, "operator", cfg.Plant.Operator)
	if err := tui.Run(ctx, db, cfg, clock); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	slog.Info("OSMO shutdown complete")
	return nil
}

// setupLogging installs the default slog logger: JSON to the configured
// log file, or text to stderr when none is set.
func setupLogging(cfg *config.Config, opts options) (func(), error) {
	logLevel := slog.LevelInfo
	if opts.debug {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case config.LogLevelDebug:
			logLevel = slog.LevelDebug
		case config.LogLevelWarn:
			logLevel = slog.LevelWarn
		case config.LogLevelError:
			logLevel = slog.LevelError
		}
	}

	logPath, err := config.EnsureLogDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	if logPath == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)))
		return func() {}, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logFile, handlerOpts)))
	return func() { logFile.Close() }, nil
}

// openDatabase recovers a damaged file if needed, opens the database and
// applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	dbPath, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("ensuring data directory: %w", err)
	}

	backupDir, err := config.BackupDir(cfg)
	if err != nil {
		slog.Warn("failed to create backup directory", "error", err)
		backupDir = ""
	}

	report, err := database.Recover(dbPath, backupDir)
	if err != nil {
		return nil, fmt.Errorf("database recovery failed after %d steps: %w", len(report.Steps), err)
	}
	slog.Debug("database checked", "outcome", report.Outcome, "steps", report.Steps)

	db, err := database.Open(dbPath, &cfg.Database, backupDir)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	migrator, err := database.NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	result, err := migrator.MigrateUp(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if len(result.Applied) > 0 {
		slog.Info("applied migrations",
			"count", len(result.Applied),
			"to_version", result.TargetVersion,
		)
	}

	if stats, err := db.GetStats(ctx); err == nil {
		slog.Debug("database ready", "path", db.Path(), "stats", stats)
	}
	return db, nil
}

func seedDatabase(ctx context.Context, db *database.DB) error {
	generator := seed.NewGenerator(db, seed.DefaultConfig())

	hasData, err := generator.HasData(ctx)
	if err != nil {
		return fmt.Errorf("checking for existing data: %w", err)
	}
	if hasData {
		slog.Warn("database already contains materials, skipping seed generation")
		return nil
	}

	summary, err := generator.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generating seed data: %w", err)
	}

	slog.Info("seed data generation complete",
		"materials", summary.Materials,
		"lots", summary.Lots,
		"products", summary.Products,
		"packaging", summary.Packaging,
	)
	return nil
}

func startScheduler(cfg *config.Config, db *database.DB, inv *inventory.Service) *scheduler.Scheduler {
	sched := scheduler.New(cfg.Scheduler, db, inv)
	if !cfg.Scheduler.Enabled {
		return sched
	}
	if err := sched.Start(); err != nil {
		slog.Warn("scheduler not started", "error", err)
	}
	return sched
}

func serve(ctx context.Context, db *database.DB, cfg *config.Config, clock util.Clock, tolerance decimal.Decimal) error {
	recorder := activity.NewService(db, clock)
	inv := inventory.NewService(db, inventory.Options{Clock: clock, Recorder: recorder})
	prod := production.NewService(db, production.Options{
		Tolerance: tolerance,
		Clock:     clock,
		Recorder:  recorder,
	})

	sched := startScheduler(cfg, db, inv)
	defer sched.Stop()

	router := api.NewRouter(api.NewHandler(prod, inv, db, cfg.Plant.Operator), cfg.Server.Mode)
	return api.Serve(ctx, cfg.Server.Addr, router)
}
