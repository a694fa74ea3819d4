package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/osmo/osmo/internal/config"
)

func openMigrated(t *testing.T) *DB {
	t.Helper()

	db, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m, err := NewMigrator(db)
	if err != nil {
		t.Fatalf("NewMigrator() error = %v", err)
	}
	if _, err := m.MigrateUp(context.Background()); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return db
}

func TestMigrator_UpDown(t *testing.T) {
	ctx := context.Background()
	db, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	defer db.Close()

	m, err := NewMigrator(db)
	if err != nil {
		t.Fatalf("NewMigrator() error = %v", err)
	}

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	if len(pending) == 0 {
		t.Fatal("expected pending migrations on a fresh database")
	}

	result, err := m.MigrateUp(ctx)
	if err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if len(result.Applied) != len(pending) {
		t.Errorf("applied %d migrations, want %d", len(result.Applied), len(pending))
	}

	again, err := m.MigrateUp(ctx)
	if err != nil {
		t.Fatalf("second MigrateUp() error = %v", err)
	}
	if len(again.Applied) != 0 {
		t.Errorf("second MigrateUp applied %d migrations, want 0", len(again.Applied))
	}

	if err := m.Verify(ctx); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	status, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	for _, s := range status {
		if !s.Applied {
			t.Errorf("migration %d not marked applied", s.Version)
		}
	}

	for {
		v, err := m.CurrentVersion(ctx)
		if err != nil {
			t.Fatalf("CurrentVersion() error = %v", err)
		}
		if v == 0 {
			break
		}
		if _, err := m.MigrateDown(ctx); err != nil {
			t.Fatalf("MigrateDown() error = %v", err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'production_orders'").Scan(&count); err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 0 {
		t.Error("production_orders still exists after rolling back every migration")
	}
}

func TestMigrator_VerifyDetectsDrift(t *testing.T) {
	ctx := context.Background()
	db := openMigrated(t)

	if _, err := db.Exec("UPDATE schema_migrations SET checksum = 'tampered' WHERE version = 1"); err != nil {
		t.Fatalf("tampering checksum: %v", err)
	}

	m, err := NewMigrator(db)
	if err != nil {
		t.Fatalf("NewMigrator() error = %v", err)
	}
	if err := m.Verify(ctx); err == nil {
		t.Error("Verify() = nil, want checksum mismatch")
	}
}

func TestSchema_RecipeLineComponentCheck(t *testing.T) {
	db := openMigrated(t)
	now := time.Now().UTC().Format(time.RFC3339)

	if _, err := db.Exec(`INSERT INTO finished_products (id, name, created_at, updated_at) VALUES ('p1', 'Bread', ?, ?)`, now, now); err != nil {
		t.Fatalf("inserting product: %v", err)
	}

	_, err := db.Exec(`INSERT INTO recipe_lines (id, finished_product_id, position, quantity_required, unit)
		VALUES ('l1', 'p1', 1, '1', 'kg')`)
	if err == nil {
		t.Error("expected CHECK failure for a recipe line without a component")
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   int
	}{
		{"Single", "CREATE TABLE a (id TEXT)", 1},
		{"Two", "CREATE TABLE a (id TEXT); CREATE TABLE b (id TEXT);", 2},
		{"Semicolon in string", "INSERT INTO a VALUES ('x;y'); SELECT 1;", 2},
		{"Escaped quote", "INSERT INTO a VALUES ('it''s; fine');", 1},
		{"Comment with punctuation", "-- don't split; here\nSELECT 1;\n-- trailing; comment", 1},
		{"Empty", "  ;  ; ", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.script)
			if len(got) != tt.want {
				t.Errorf("splitStatements() returned %d statements %q, want %d", len(got), got, tt.want)
			}
		})
	}
}

func TestParseMigration(t *testing.T) {
	up, down := parseMigration("-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n")
	if up != "CREATE TABLE a (id TEXT);" {
		t.Errorf("up = %q", up)
	}
	if down != "DROP TABLE a;" {
		t.Errorf("down = %q", down)
	}

	up, down = parseMigration("SELECT 1;")
	if up != "SELECT 1;" || down != "" {
		t.Errorf("unmarked migration parsed as up=%q down=%q", up, down)
	}
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := openMigrated(t)
	now := time.Now().UTC().Format(time.RFC3339)

	insert := func(tx *sql.Tx, id, name string) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO packaging (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)", id, name, now, now)
		return err
	}

	t.Run("Commit", func(t *testing.T) {
		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			return insert(tx, "pk1", "Box")
		})
		if err != nil {
			t.Fatalf("WithTransaction() error = %v", err)
		}
	})

	t.Run("Rollback on error", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := insert(tx, "pk2", "Bag"); err != nil {
				return err
			}
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("WithTransaction() error = %v, want sentinel", err)
		}
	})

	t.Run("Rollback on panic", func(t *testing.T) {
		func() {
			defer func() { recover() }()
			db.WithTransaction(ctx, func(tx *sql.Tx) error {
				insert(tx, "pk3", "Crate")
				panic("boom")
			})
		}()
	})

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM packaging").Scan(&count); err != nil {
		t.Fatalf("counting packaging: %v", err)
	}
	if count != 1 {
		t.Errorf("packaging rows = %d, want 1", count)
	}
}

func TestClosedDatabase(t *testing.T) {
	db, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !db.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if _, err := db.BeginTx(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginTx() error = %v, want ErrClosed", err)
	}
	if err := db.HealthCheck(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("HealthCheck() error = %v, want ErrClosed", err)
	}
}

func TestBackupAndRecover(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "osmo.db")
	backupDir := filepath.Join(dir, "backups")

	db, err := Open(dbPath, &config.DatabaseConfig{BusyTimeoutMS: 1000, BackupRetentionDays: 30}, backupDir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	m, err := NewMigrator(db)
	if err != nil {
		t.Fatalf("NewMigrator() error = %v", err)
	}
	if _, err := m.MigrateUp(ctx); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	backupPath, err := db.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.SchemaVersion != 1 {
		t.Errorf("SchemaVersion = %d, want 1", stats.SchemaVersion)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	report, err := Recover(dbPath, backupDir)
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if report.Outcome != RecoveryHealthy {
		t.Errorf("Outcome = %s, want healthy", report.Outcome)
	}

	backups, err := ListBackups(backupDir)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(backups) != 1 || backups[0] != backupPath {
		t.Errorf("ListBackups() = %v, want [%s]", backups, backupPath)
	}

	// Damage the live file and restore from the backup.
	if err := os.WriteFile(dbPath, []byte("not a database"), 0600); err != nil {
		t.Fatalf("corrupting database: %v", err)
	}
	os.Remove(dbPath + "-wal")

	report, err = Recover(dbPath, backupDir)
	if err != nil {
		t.Fatalf("Recover() after corruption error = %v", err)
	}
	if report.Outcome != RecoveryFromBackup || report.BackupUsed != backupPath {
		t.Errorf("report = %+v, want restore from %s", report, backupPath)
	}
}

func TestRecover_MissingFile(t *testing.T) {
	report, err := Recover(filepath.Join(t.TempDir(), "absent.db"), "")
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if report.Outcome != RecoveryHealthy {
		t.Errorf("Outcome = %s, want healthy", report.Outcome)
	}
}

func TestPruneBackups(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, BackupPrefix+"20200101-000000.db")
	keep := filepath.Join(dir, BackupPrefix+"20990101-000000.db")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, keep, other} {
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatalf("writing %s: %v", p, err)
		}
	}
	past := time.Now().AddDate(0, 0, -60)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.Chtimes(other, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	db := &DB{backupDir: dir, config: &config.DatabaseConfig{}}
	if removed := db.PruneBackups(time.Now().AddDate(0, 0, -30)); removed != 1 {
		t.Errorf("PruneBackups() removed %d, want 1", removed)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("recent backup was removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-backup file was removed")
	}
}

func TestIsBusy_NonSQLiteError(t *testing.T) {
	if IsBusy(errors.New("database is locked")) {
		t.Error("IsBusy() = true for a plain error")
	}
	if IsBusy(nil) {
		t.Error("IsBusy(nil) = true")
	}
}
