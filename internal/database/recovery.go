package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RecoveryOutcome is the result of a startup recovery attempt.
type RecoveryOutcome string

const (
	RecoveryHealthy       RecoveryOutcome = "healthy"
	RecoveryWALReplayed   RecoveryOutcome = "wal_replayed"
	RecoveryFromBackup    RecoveryOutcome = "restored_from_backup"
	RecoveryUnrecoverable RecoveryOutcome = "failed"
)

// RecoveryReport describes what Recover did.
type RecoveryReport struct {
	Outcome    RecoveryOutcome
	Path       string
	BackupUsed string
	Steps      []string
}

func (r *RecoveryReport) step(format string, args ...any) {
	r.Steps = append(r.Steps, fmt.Sprintf(format, args...))
}

// Recover checks the database file before it is opened for use. A damaged
// file is first repaired by replaying its WAL; failing that, it is moved
// aside and replaced with the newest backup that passes an integrity check.
// A missing file is healthy (first run).
func Recover(dbPath, backupDir string) (*RecoveryReport, error) {
	report := &RecoveryReport{Path: dbPath, Outcome: RecoveryHealthy}

	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		report.step("database does not exist yet")
		return report, nil
	}

	err := checkFileIntegrity(dbPath)
	if err == nil {
		report.step("integrity check passed")
		return report, nil
	}
	report.step("integrity check failed: %v", err)
	slog.Warn("database integrity check failed", "path", dbPath, "error", err)

	if _, statErr := os.Stat(dbPath + "-wal"); statErr == nil {
		if err := replayWAL(dbPath); err != nil {
			report.step("WAL replay failed: %v", err)
		} else if err := checkFileIntegrity(dbPath); err == nil {
			report.step("WAL replayed")
			report.Outcome = RecoveryWALReplayed
			slog.Info("database recovered via WAL replay", "path", dbPath)
			return report, nil
		}
	}

	if backupDir != "" {
		used, err := restoreLatestBackup(dbPath, backupDir)
		if err == nil {
			report.step("restored %s", used)
			report.Outcome = RecoveryFromBackup
			report.BackupUsed = used
			slog.Info("database restored from backup", "path", dbPath, "backup", used)
			return report, nil
		}
		report.step("backup restore failed: %v", err)
	}

	report.Outcome = RecoveryUnrecoverable
	slog.Error("database recovery failed", "path", dbPath, "steps", len(report.Steps))
	return report, errors.New("database is damaged and no recovery step succeeded")
}

func checkFileIntegrity(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("running quick check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("quick check: %s", result)
	}
	return nil
}

func replayWAL(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(RESTART)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}

// restoreLatestBackup replaces dbPath with the newest intact backup and
// keeps the damaged file next to it with a .corrupted suffix.
func restoreLatestBackup(dbPath, backupDir string) (string, error) {
	backups, err := ListBackups(backupDir)
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", errors.New("no backup files found")
	}

	for _, backup := range backups {
		if err := checkFileIntegrity(backup); err != nil {
			slog.Debug("skipping damaged backup", "path", backup, "error", err)
			continue
		}

		aside := dbPath + ".corrupted." + time.Now().Format("20060102-150405")
		if err := os.Rename(dbPath, aside); err != nil {
			slog.Warn("failed to preserve damaged database", "path", dbPath, "error", err)
		}
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")

		if err := copyFile(backup, dbPath); err != nil {
			return "", fmt.Errorf("copying backup: %w", err)
		}
		return backup, nil
	}

	return "", errors.New("no intact backup found")
}

// ListBackups returns osmo backup files in dir, newest first.
func ListBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var found []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, BackupPrefix) || !strings.HasSuffix(name, ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].modTime.Equal(found[j].modTime) {
			return found[i].path > found[j].path
		}
		return found[i].modTime.After(found[j].modTime)
	})

	paths := make([]string, len(found))
	for i, c := range found {
		paths[i] = c.path
	}
	return paths, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return out.Sync()
}
