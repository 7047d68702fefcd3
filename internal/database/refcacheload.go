package database

import (
	"context"
	"database/sql"

	"github.com/rocprofvis/datamodel/pkg/refcache"
)

// referenceTables lists the small lookup tables primed into the
// reference cache during metadata load, keyed by (table, id-column,
// value-column) per spec §4.2/§4.6.
var referenceTables = []struct {
	table  string
	idCol  string
	valCol string
}{
	{"rocpd_string", "id", "string"},
	{"rocpd_node", "id", "hostname"},
	{"rocpd_agent", "id", "name"},
	{"rocpd_queue", "id", "name"},
	{"rocpd_stream", "id", "name"},
	{"rocpd_process", "id", "command"},
	{"rocpd_thread", "id", "name"},
	{"rocpd_kernel_symbol", "id", "display_name"},
}

// PrimeReferenceCache runs one query per known reference table and
// fills d's refCache, skipping any table absent from this database's
// schema variant. It is called once, early in ReadMetadataAsync,
// before ExtData's lazy foreign-key resolution can be relied upon.
func (d *Database) PrimeReferenceCache(ctx context.Context) error {
	for _, rt := range referenceTables {
		if !d.tableExists(rt.table) {
			continue
		}
		q := infoSchemaQuery(rt.table, rt.idCol, rt.valCol)
		batch := make(map[refcache.Key]string)
		err := d.queryLocked(ctx, nil, q, nil, func(rows *sql.Rows) error {
			var id int64
			var val string
			if err := rows.Scan(&id, &val); err != nil {
				return err
			}
			key := refcache.Key{
				Table:     rt.table,
				RowID:     id,
				Column:    rt.valCol,
				DbFileIdx: d.dbInstance.FileIndex,
			}
			batch[key] = val
			return nil
		})
		if err != nil {
			return err
		}
		d.refCache.PutBatch(batch)
	}
	return nil
}
