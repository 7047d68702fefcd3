// Package database opens the on-disk SQLite captures this engine
// ingests, auto-detects their schema variant, and runs the SQL behind
// each of the loader's four async operations. It treats SQLite itself
// as a black-box row-yielding driver (spec §1's explicit non-goal)
// and the on-disk schema as an external contract (spec §6) — nothing
// here writes back to the database.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/rocprofvis/datamodel/internal/binding"
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/pkg/refcache"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// witnessTables maps each schema variant to a table whose presence
// identifies it. ModernRocprof is checked first since a modern
// capture also happens to satisfy some legacy-looking probes on
// shared table names like rocpd_string (spec §4.2).
var witnessTables = []struct {
	variant types.SchemaVariant
	table   string
}{
	{types.SchemaModernRocprof, "rocpd_region"},
	{types.SchemaLegacyRocpd, "rocpd_api"},
}

// Database is the abstract interface implemented by the two schema
// variants (spec §4.2). It owns one SQLite connection, serialized
// internally by connMu, and a reference-table cache shared with the
// bound Trace's ExtData lazy resolution.
type Database struct {
	path       string
	dbInstance types.DbInstance
	logger     *logrus.Logger

	connMu sync.Mutex
	conn   *sql.DB
	open   bool

	variant types.SchemaVariant
	binding *binding.Binding

	refCache *refcache.Cache
}

// Open opens path and, if variant is SchemaAutodetect, probes the
// file for a witness table to determine the concrete schema variant.
// A file matching no witness table is rejected: Open closes it and
// returns a nil Database and an error.
func Open(path string, variant types.SchemaVariant, dbInstance types.DbInstance, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite database %q: %w", path, err)
	}

	d := &Database{
		path:       path,
		dbInstance: dbInstance,
		logger:     logger,
		conn:       conn,
		open:       true,
		refCache:   refcache.New(),
	}

	if variant == types.SchemaAutodetect {
		variant = d.autodetect()
		if variant == types.SchemaUnknown {
			conn.Close()
			d.open = false
			return nil, fmt.Errorf("database %q: no recognized schema variant (missing all witness tables)", path)
		}
	}
	d.variant = variant
	return d, nil
}

// autodetect probes the connection for each witness table in
// preference order and returns the first variant found, or
// SchemaUnknown.
func (d *Database) autodetect() types.SchemaVariant {
	for _, w := range witnessTables {
		if d.tableExists(w.table) {
			return w.variant
		}
	}
	return types.SchemaUnknown
}

// TableExists reports whether a table by this name is present,
// allowing loader callers to skip optional tables for the variant
// that lacks them.
func (d *Database) TableExists(name string) bool {
	return d.tableExists(name)
}

// CategoryTableExists reports whether the event table backing the
// given track category exists in this database.
func (d *Database) CategoryTableExists(category types.TrackCategory) bool {
	table, ok := categoryTable[category]
	if !ok {
		return false
	}
	return d.tableExists(table)
}

// QueryRow runs q and returns its single result row.
func (d *Database) QueryRow(ctx context.Context, q string, args ...any) (*sql.Row, error) {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return d.conn.QueryRowContext(ctx, q, args...), nil
}

func (d *Database) tableExists(name string) bool {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	row := d.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, name)
	var got string
	return row.Scan(&got) == nil
}

// SchemaVariant reports the detected (or forced) schema variant.
func (d *Database) SchemaVariant() types.SchemaVariant { return d.variant }

// Path returns the underlying file path.
func (d *Database) Path() string { return d.path }

// DbInstance returns this database's instance tag, used to
// disambiguate cached values and topology ids when a Trace binds more
// than one database.
func (d *Database) DbInstance() types.DbInstance { return d.dbInstance }

// IsOpen reports whether the connection is still open.
func (d *Database) IsOpen() bool {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return d.open
}

// Close closes the underlying connection. Idempotent.
func (d *Database) Close() error {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	if !d.open {
		return nil
	}
	d.open = false
	return d.conn.Close()
}

// BindTrace installs trace's binding record into this Database,
// producing the seam described in spec §4.4/§7 ("Mutual friendship
// between Trace and Database"). Must be called before any async
// request.
func (d *Database) BindTrace(trace *datamodel.Trace) {
	d.binding = binding.Bind(trace)
}

// Binding returns the installed binding record, or nil if BindTrace
// has not been called.
func (d *Database) Binding() *binding.Binding { return d.binding }

// RefCache returns this database's reference-table cache.
func (d *Database) RefCache() *refcache.Cache { return d.refCache }

// queryLocked runs q and drains it via fn while holding the
// connection mutex for the whole statement, matching spec §4.1's
// description of cancellation polling "between rows and between
// statements" without another goroutine's query interleaving mid-scan
// on the same connection. The initial statement execution is retried
// on a transient SQLITE_BUSY per retryConfig (see retry.go).
func (d *Database) queryLocked(ctx context.Context, interrupted func() bool, q string, args []any, fn func(rows *sql.Rows) error) error {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	var rows *sql.Rows
	err := withRetry(ctx, d.logger, defaultRetryConfig(), func() error {
		r, qErr := d.conn.QueryContext(ctx, q, args...)
		if qErr != nil {
			return qErr
		}
		rows = r
		return nil
	})
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if interrupted != nil && interrupted() {
			return context.Canceled
		}
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
