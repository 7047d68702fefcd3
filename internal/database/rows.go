package database

import (
	"context"
	"database/sql"
)

// RowScanner is the minimal surface the loader needs from *sql.Rows
// to scan one row, kept as an interface so callback signatures in
// package loader don't need to import database/sql directly.
type RowScanner interface {
	Scan(dest ...any) error
}

// QueryRows runs q and calls fn once per returned row, holding the
// connection mutex for the whole statement (see queryLocked). interrupted,
// if non-nil, is polled between rows so a cancelled Future can abort
// the scan without waiting for the full result set (spec §4.1).
func (d *Database) QueryRows(ctx context.Context, interrupted func() bool, q string, args []any, fn func(scan RowScanner) error) error {
	return d.queryLocked(ctx, interrupted, q, args, func(rows *sql.Rows) error {
		return fn(rows)
	})
}

// QueryColumns runs q as given (no LIMIT is added) and returns its
// column names without reading any rows, for ExecuteQueryAsync's
// table-shape discovery step.
func (d *Database) QueryColumns(ctx context.Context, q string) ([]string, error) {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	rows, err := d.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

// ColumnsOf fetches table's column names via a zero-row query, used by
// loadExtData to discover which columns of an event's own source row
// become attribute names (spec §4.6).
func (d *Database) ColumnsOf(ctx context.Context, table string) ([]string, error) {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	rows, err := d.conn.QueryContext(ctx, "SELECT * FROM "+table+" LIMIT 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}
