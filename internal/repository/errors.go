// Package repository holds the MySQL-backed stores. Failures that callers
// need to tell apart are reported as the sentinels below; everything else is
// returned wrapped and treated as internal.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update hits a unique key.
var ErrDuplicate = errors.New("duplicate")

// ErrStale is returned when a guarded update matched no row because the row
// changed since it was read.
var ErrStale = errors.New("stale")

// isDuplicate reports MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(err.Error(), "1062")
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
