package database

import (
	"fmt"

	"github.com/rocprofvis/datamodel/pkg/types"
)

// categoryTable names the per-category event table for ModernRocprof
// captures, per spec §4.6's wire contract.
var categoryTable = map[types.TrackCategory]string{
	types.TrackCPURegion:      "rocpd_region",
	types.TrackKernelDispatch: "rocpd_kernel_dispatch",
	types.TrackMemoryCopy:     "rocpd_memory_copy",
	types.TrackMemoryAllocate: "rocpd_memory_allocate",
	types.TrackPMC:            "rocpd_pmc",
}

// DistinctIdentifierQuery builds the "SELECT DISTINCT nid, pid,
// queueId-or-tid" query used by
// ReadMetadataAsync to enumerate tracks for one category table (spec
// §4.3 step 1).
func DistinctIdentifierQuery(category types.TrackCategory, variant types.SchemaVariant) (string, error) {
	table, ok := categoryTable[category]
	if !ok {
		return "", fmt.Errorf("no table mapped for category %v in variant %v", category, variant)
	}
	switch category {
	case types.TrackKernelDispatch, types.TrackMemoryCopy, types.TrackMemoryAllocate, types.TrackPMC:
		return fmt.Sprintf(`SELECT DISTINCT nid, pid, queueId FROM %s`, table), nil
	default: // CPU region: thread-scoped, not queue-scoped
		return fmt.Sprintf(`SELECT DISTINCT nid, pid, tid FROM %s`, table), nil
	}
}

// SliceDataQuery builds the windowed per-track data query substituting
// the category-specific primary/secondary/tertiary identifier columns
// and the [start, end) time window (spec §4.6: "Per-track SQL is
// templated with substitutions for the category-specific
// primary/secondary/tertiary identifier columns and the time window").
func SliceDataQuery(category types.TrackCategory, nid, pid, thirdID uint64, start, end types.Timestamp) (string, []any, error) {
	table, ok := categoryTable[category]
	if !ok {
		return "", nil, fmt.Errorf("no table mapped for category %v", category)
	}
	switch category {
	case types.TrackKernelDispatch, types.TrackMemoryCopy, types.TrackMemoryAllocate, types.TrackPMC:
		q := fmt.Sprintf(`SELECT id, start, end FROM %s WHERE nid = ? AND pid = ? AND queueId = ? AND start < ? AND end >= ? ORDER BY start ASC`, table)
		return q, []any{nid, pid, thirdID, uint64(end), uint64(start)}, nil
	default:
		q := fmt.Sprintf(`SELECT id, start, end FROM %s WHERE nid = ? AND pid = ? AND tid = ? AND start < ? AND end >= ? ORDER BY start ASC`, table)
		return q, []any{nid, pid, thirdID, uint64(end), uint64(start)}, nil
	}
}

// infoSchemaQuery builds a reference-cache priming query for a small
// lookup table (spec §4.6: "The builder also emits info-schema
// queries for the reference cache").
func infoSchemaQuery(table string, idColumn string, valueColumn string) string {
	return fmt.Sprintf(`SELECT %s, %s FROM %s`, idColumn, valueColumn, table)
}

// FlowTraceQuery and StackTraceQuery build the per-event-property
// queries used by ReadEventPropertyAsync (spec §4.3 step 3).
func FlowTraceQuery() string {
	return `SELECT start, id FROM rocpd_event WHERE id = ? ORDER BY start ASC`
}

func StackTraceQuery() string {
	return `SELECT depth, name FROM rocpd_event WHERE id = ? ORDER BY depth ASC`
}

// ExtDataQuery builds the generic per-category row lookup ExtData
// attributes are derived from: every column of the event's own source
// row, not a separate side-table (spec §4.6, following the original
// loader's per-operation "select * from <table> where id == ?" shape).
// It returns the query alongside the source table name, since the
// table name also serves as the attribute category label.
func ExtDataQuery(category types.TrackCategory) (query string, table string, err error) {
	table, ok := categoryTable[category]
	if !ok {
		return "", "", fmt.Errorf("no table mapped for category %v", category)
	}
	query = fmt.Sprintf(`SELECT * FROM %s WHERE id = ?`, table)
	return query, table, nil
}
