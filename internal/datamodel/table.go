package datamodel

import (
	"sync"

	"github.com/rocprofvis/datamodel/pkg/types"
)

// TableCell is one value in a QueryResultTable, tagged with its
// dynamic type since an arbitrary SQL query's column types are not
// known until execution (spec §3, §4.8 ExecuteQuery).
type TableCell struct {
	Kind   types.PropertyValueType
	Int    int64
	Double float64
	Str    string
}

// QueryResultTable is the materialized result of a user-supplied SQL
// query executed against the trace's database (spec §4.8). It is
// cached by its fingerprint (pkg/fingerprint.Table) so repeated
// identical queries reuse the same table rather than re-executing
// (spec §8 property 6).
type QueryResultTable struct {
	id types.TableId

	mu      sync.RWMutex
	columns []string
	rows    [][]TableCell
}

// NewQueryResultTable constructs an empty table identified by id
// (typically the query-text fingerprint).
func NewQueryResultTable(id types.TableId, columns []string) *QueryResultTable {
	cp := make([]string, len(columns))
	copy(cp, columns)
	return &QueryResultTable{id: id, columns: cp}
}

func (t *QueryResultTable) ID() types.TableId { return t.id }

// Columns returns the column names in order.
func (t *QueryResultTable) Columns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// AppendRow adds one row. The loader is responsible for matching
// row length to Columns().
func (t *QueryResultTable) AppendRow(row []TableCell) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]TableCell, len(row))
	copy(cp, row)
	t.rows = append(t.rows, cp)
}

// NumRows returns the current row count.
func (t *QueryResultTable) NumRows() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Cell returns the cell at (row, col), or (zero, false) if out of
// range.
func (t *QueryResultTable) Cell(row, col int) (TableCell, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if row < 0 || row >= len(t.rows) {
		return TableCell{}, false
	}
	if col < 0 || col >= len(t.rows[row]) {
		return TableCell{}, false
	}
	return t.rows[row][col], true
}

// Bytes estimates the table's footprint.
func (t *QueryResultTable) Bytes() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := int64(0)
	for _, row := range t.rows {
		for _, c := range row {
			total += int64(len(c.Str)) + 24
		}
	}
	return total
}
