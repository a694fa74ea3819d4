// Package repository provides hand-written SQL data access for osmo.
//
// Methods that may run inside a service transaction take a *sql.Tx as their
// second argument; nil runs the statement on the pool. The database keeps a
// single connection, so a caller holding a transaction must pass it to every
// call it makes, reads included.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// ErrStaleWrite is returned when a guarded update matches no row because
// the row changed after it was read.
var ErrStaleWrite = errors.New("row changed since it was read")

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getQuerier(db *sql.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}

// expectOneRow maps a zero-row guarded update to ErrStaleWrite.
func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleWrite
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func stamp(t *time.Time) time.Time {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
	return *t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
