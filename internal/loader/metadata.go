package loader

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/rocprofvis/datamodel/internal/database"
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// eventTables lists every event-bearing table consulted for the
// trace's overall [start, end) time range (spec §4.3 step 1:
// "SELECT MIN(start), SELECT MAX(end) across all event tables").
var eventTables = []string{
	"rocpd_region",
	"rocpd_kernel_dispatch",
	"rocpd_memory_copy",
	"rocpd_memory_allocate",
}

func (l *Loader) loadTimeRange(ctx context.Context) error {
	var globalMin, globalMax uint64
	haveAny := false

	for _, table := range eventTables {
		if !l.db.TableExists(table) {
			continue
		}
		row, err := l.db.QueryRow(ctx, "SELECT MIN(start), MAX(end) FROM "+table)
		if err != nil {
			return err
		}
		var min, max sql.NullInt64
		if err := row.Scan(&min, &max); err != nil {
			return err
		}
		if !min.Valid || !max.Valid {
			continue
		}
		if !haveAny || uint64(min.Int64) < globalMin {
			globalMin = uint64(min.Int64)
		}
		if !haveAny || uint64(max.Int64) > globalMax {
			globalMax = uint64(max.Int64)
		}
		haveAny = true
	}

	if haveAny {
		l.db.Binding().FuncSetTimeRange(types.Timestamp(globalMin), types.Timestamp(globalMax))
	}
	return nil
}

// categoryToNodeKinds supplies AddTopologyNode's kindForLevel
// callback: which concrete topology node kind a given identifier
// level maps to for this category (spec §4.7: "each level recognizes
// its own category tags and extends itself with the appropriate
// child").
func categoryToNodeKinds(category types.TrackCategory) func(level string) (datamodel.NodeKind, bool) {
	return func(level string) (datamodel.NodeKind, bool) {
		switch level {
		case "node":
			return datamodel.NodeSystem, true
		case "process":
			return datamodel.NodeProcess, true
		case "agent":
			return datamodel.NodeProcessor, true
		case "thread":
			if category == types.TrackCPURegion {
				return datamodel.NodeThreadInstrumented, true
			}
			return datamodel.NodeThreadSampled, true
		case "queue":
			switch category {
			case types.TrackKernelDispatch:
				return datamodel.NodeQueueKernelDispatch, true
			case types.TrackMemoryCopy:
				return datamodel.NodeQueueMemoryCopy, true
			case types.TrackMemoryAllocate:
				return datamodel.NodeQueueMemoryAllocate, true
			default:
				return datamodel.NodeQueueKernelDispatch, true
			}
		default:
			return datamodel.NodeSystem, false
		}
	}
}

// loadTracksForCategory implements spec §4.3 step 1's per-category
// track enumeration: runs the distinct-identifier query, and for each
// tuple not already present calls AddTrack and registers the track in
// the topology tree.
func (l *Loader) loadTracksForCategory(ctx context.Context, category types.TrackCategory) error {
	if !l.db.CategoryTableExists(category) {
		return nil
	}
	q, err := database.DistinctIdentifierQuery(category, l.db.SchemaVariant())
	if err != nil {
		return nil
	}
	secondLevel, thirdLevel := identifierLevelsForCategory(category)

	return l.db.QueryRows(ctx, nil, q, nil, func(scan database.RowScanner) error {
		var nid, pid, third uint64
		if err := scan.Scan(&nid, &pid, &third); err != nil {
			return err
		}
		tuple := datamodel.IdentifierTuple{
			datamodel.NumIdentifier("node", nid),
			datamodel.NumIdentifier(secondLevel, pid),
			datamodel.NumIdentifier(thirdLevel, third),
		}
		if _, exists := l.db.Binding().FuncFindTrack(category, tuple); !exists {
			l.db.Binding().FuncAddTrack(category, tuple)
			l.db.Binding().FuncAddTopologyNode(tuple, categoryToNodeKinds(category))
		}
		return nil
	})
}

func identifierLevelsForCategory(category types.TrackCategory) (second, third string) {
	switch category {
	case types.TrackKernelDispatch, types.TrackMemoryCopy, types.TrackMemoryAllocate, types.TrackPMC:
		return "process", "queue"
	default:
		return "process", "thread"
	}
}

// loadStrings implements spec §4.3 step 1's string-pool population:
// a sentinel empty string at index 0, then every rocpd_string row,
// then kernel display names, recording symbols_offset as the boundary
// (exposed for callers via Loader.SymbolsOffset).
func (l *Loader) loadStrings(ctx context.Context) error {
	l.db.Binding().FuncAppendString("")

	if l.db.TableExists("rocpd_string") {
		err := l.db.QueryRows(ctx, nil, "SELECT string FROM rocpd_string ORDER BY id ASC", nil, func(scan database.RowScanner) error {
			var s string
			if err := scan.Scan(&s); err != nil {
				return err
			}
			l.db.Binding().FuncAppendString(s)
			return nil
		})
		if err != nil {
			return err
		}
	}

	l.symbolsOffset = l.trace.StringPoolLen()

	if l.db.TableExists("rocpd_kernel_symbol") {
		err := l.db.QueryRows(ctx, nil, "SELECT display_name FROM rocpd_kernel_symbol ORDER BY id ASC", nil, func(scan database.RowScanner) error {
			var s string
			if err := scan.Scan(&s); err != nil {
				return err
			}
			l.db.Binding().FuncAppendString(s)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadFlowTrace(ctx context.Context, eventID types.EventId) error {
	q := database.FlowTraceQuery()
	return l.db.QueryRows(ctx, nil, q, []any{eventID.Key()}, func(scan database.RowScanner) error {
		var start uint64
		var id uint64
		if err := scan.Scan(&start, &id); err != nil {
			return err
		}
		l.db.Binding().FuncAddFlowLink(datamodel.FlowLink{
			From: eventID,
			To:   types.NewEventId(id, eventID.Op()),
		})
		return nil
	})
}

func (l *Loader) loadStackTrace(ctx context.Context, eventID types.EventId) error {
	q := database.StackTraceQuery()
	var frames []datamodel.StackFrame
	err := l.db.QueryRows(ctx, nil, q, []any{eventID.Key()}, func(scan database.RowScanner) error {
		var depth int
		var name string
		if err := scan.Scan(&depth, &name); err != nil {
			return err
		}
		frames = append(frames, datamodel.StackFrame{Name: name})
		return nil
	})
	if err != nil {
		return err
	}
	l.db.Binding().FuncSetStackTrace(eventID, frames)
	return nil
}

// trackCategoryOp maps a track's category to the EventOp tag its
// events carry (spec §3's 4-bit operation tag), mirroring the original
// loader's per-category query branch: CPU regions are instrumented
// launches, kernel dispatches are dispatches, and the two memory
// categories carry their own tags.
func trackCategoryOp(category types.TrackCategory) types.EventOp {
	switch category {
	case types.TrackCPURegion:
		return types.OpLaunch
	case types.TrackKernelDispatch:
		return types.OpDispatch
	case types.TrackMemoryAllocate:
		return types.OpMemoryAllocate
	case types.TrackMemoryCopy:
		return types.OpMemoryCopy
	default:
		return types.OpNoOp
	}
}

// opToCategory inverts trackCategoryOp, recovering which source table
// an event's ExtData attributes come from (spec §4.3 op 3).
func opToCategory(op types.EventOp) (types.TrackCategory, bool) {
	switch op {
	case types.OpLaunch:
		return types.TrackCPURegion, true
	case types.OpDispatch:
		return types.TrackKernelDispatch, true
	case types.OpMemoryAllocate:
		return types.TrackMemoryAllocate, true
	case types.OpMemoryCopy:
		return types.TrackMemoryCopy, true
	default:
		return 0, false
	}
}

func scanEventRow(scan database.RowScanner, op types.EventOp) (datamodel.EventRecord, error) {
	var id, start, end uint64
	if err := scan.Scan(&id, &start, &end); err != nil {
		return datamodel.EventRecord{}, err
	}
	duration := int64(end) - int64(start)
	return datamodel.EventRecord{
		EventID:   types.NewEventId(id, op),
		Timestamp: types.Timestamp(start),
		Duration:  duration,
	}, nil
}

// loadExtData populates eventID's attribute records from every
// non-identifier column of its own source row (spec §4.3 op 3, §4.6):
// the row's category table doubles as the attribute category label,
// following the original loader's generic per-operation "select *"
// callback.
func (l *Loader) loadExtData(ctx context.Context, eventID types.EventId) error {
	category, ok := opToCategory(eventID.Op())
	if !ok {
		return nil
	}
	query, table, err := database.ExtDataQuery(category)
	if err != nil {
		return nil
	}
	cols, err := l.db.ColumnsOf(ctx, table)
	if err != nil {
		return err
	}
	return l.db.QueryRows(ctx, nil, query, []any{eventID.Key()}, func(scan database.RowScanner) error {
		row, scanErr := scanGenericRow(scan, len(cols))
		if scanErr != nil {
			return scanErr
		}
		for i, col := range cols {
			if strings.EqualFold(col, "id") {
				continue
			}
			l.db.Binding().FuncAddExtDataAttribute(eventID, attributeFromCell(table, col, row[i]))
		}
		return nil
	})
}

func attributeFromCell(category, name string, cell datamodel.TableCell) datamodel.AttributeRecord {
	switch cell.Kind {
	case types.ValueInt:
		return datamodel.AttributeRecord{Category: category, Name: name, Type: types.ValueInt, Literal: strconv.FormatInt(cell.Int, 10)}
	case types.ValueDouble:
		return datamodel.AttributeRecord{Category: category, Name: name, Type: types.ValueDouble, Literal: strconv.FormatFloat(cell.Double, 'g', -1, 64)}
	case types.ValueString:
		return datamodel.AttributeRecord{Category: category, Name: name, Type: types.ValueString, Literal: cell.Str}
	default:
		return datamodel.AttributeRecord{Category: category, Name: name, Type: types.ValueNull}
	}
}

func scanGenericRow(scan database.RowScanner, numCols int) ([]datamodel.TableCell, error) {
	raw := make([]any, numCols)
	ptrs := make([]any, numCols)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := scan.Scan(ptrs...); err != nil {
		return nil, err
	}
	cells := make([]datamodel.TableCell, numCols)
	for i, v := range raw {
		switch vv := v.(type) {
		case int64:
			cells[i] = datamodel.TableCell{Kind: types.ValueInt, Int: vv}
		case float64:
			cells[i] = datamodel.TableCell{Kind: types.ValueDouble, Double: vv}
		case string:
			cells[i] = datamodel.TableCell{Kind: types.ValueString, Str: vv}
		case []byte:
			cells[i] = datamodel.TableCell{Kind: types.ValueString, Str: string(vv)}
		case nil:
			cells[i] = datamodel.TableCell{Kind: types.ValueNull}
		default:
			cells[i] = datamodel.TableCell{Kind: types.ValueNull}
		}
	}
	return cells, nil
}
