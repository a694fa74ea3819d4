// Package scheduler runs periodic maintenance: database backups and the
// critical stock scan.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/osmo/osmo/internal/config"
	"github.com/osmo/osmo/internal/models"
)

// Backupper writes a database backup and returns its path.
type Backupper interface {
	Backup(ctx context.Context) (string, error)
}

// StockChecker lists materials at or below their critical threshold.
type StockChecker interface {
	CriticalStock(ctx context.Context) ([]models.MaterialStock, error)
}

const jobTimeout = 2 * time.Minute

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.SchedulerConfig
	backups Backupper
	stock   StockChecker

	mu           sync.RWMutex
	lastCritical []models.MaterialStock
	lastBackup   string
}

// New creates a scheduler. Either job source may be nil to disable it.
func New(cfg config.SchedulerConfig, backups Backupper, stock StockChecker) *Scheduler {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn))

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		cfg:     cfg,
		backups: backups,
		stock:   stock,
	}
}

// Start registers the configured jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	if s.cfg.BackupSchedule != "" && s.backups != nil {
		if _, err := s.cron.AddFunc(s.cfg.BackupSchedule, s.RunBackup); err != nil {
			return fmt.Errorf("scheduling backup %q: %w", s.cfg.BackupSchedule, err)
		}
	}
	if s.cfg.StockCheckSchedule != "" && s.stock != nil {
		if _, err := s.cron.AddFunc(s.cfg.StockCheckSchedule, s.RunStockCheck); err != nil {
			return fmt.Errorf("scheduling stock check %q: %w", s.cfg.StockCheckSchedule, err)
		}
	}

	slog.Info("starting scheduler", "jobs", len(s.cron.Entries()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	slog.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// RunBackup writes a backup now.
func (s *Scheduler) RunBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	path, err := s.backups.Backup(ctx)
	if err != nil {
		slog.Error("scheduled backup failed", "error", err)
		return
	}

	s.mu.Lock()
	s.lastBackup = path
	s.mu.Unlock()
	slog.Info("scheduled backup written", "path", path)
}

// RunStockCheck scans stock now and logs a warning per critical material.
func (s *Scheduler) RunStockCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	critical, err := s.stock.CriticalStock(ctx)
	if err != nil {
		slog.Error("critical stock check failed", "error", err)
		return
	}

	for _, ms := range critical {
		slog.Warn("material at critical stock",
			"material_id", ms.Material.ID,
			"material", ms.Material.Name,
			"on_hand", models.FormatQuantity(ms.OnHand, ms.Material.Unit),
			"threshold", models.FormatQuantity(ms.Material.CriticalThreshold, ms.Material.Unit),
		)
	}

	s.mu.Lock()
	s.lastCritical = critical
	s.mu.Unlock()
}

// LastCritical returns the result of the latest stock check.
func (s *Scheduler) LastCritical() []models.MaterialStock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCritical
}

// LastBackup returns the path of the latest scheduled backup.
func (s *Scheduler) LastBackup() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBackup
}
