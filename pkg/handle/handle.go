// Package handle implements the opaque-handle / typed-property-getter
// façade a UI uses to walk the trace model (spec §4.8). A Handle
// names an object by kind and identity without exposing the concrete
// Go type behind it; five scalar getters (GetUint64, GetInt64,
// GetFloat64, GetString, GetHandle) dispatch on a per-kind, closed
// property-id enum, returning InvalidProperty for any id the object
// kind doesn't recognize or whose declared type doesn't match the
// getter called.
package handle

import (
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// Kind identifies which concrete object a Handle addresses.
type Kind int

const (
	KindTrace Kind = iota
	KindTrack
	KindSlice
	KindFlowTrace
	KindStackTrace
	KindExtData
	KindTable
	KindTableRow
	KindTopologyNode
)

// Handle is the opaque reference handed back from every getter and
// every loader operation's result. Two handles compare equal iff they
// address the same underlying object; the zero Handle is never valid
// (Kind defaults to KindTrace but Ptr is nil).
type Handle struct {
	Kind Kind
	Ptr  any // the concrete *datamodel.X this handle addresses
}

// Valid reports whether h addresses a live object.
func (h Handle) Valid() bool { return h.Ptr != nil }

// PropertyId is a closed, per-Kind enumeration. Each id name encodes
// its intended scalar type (UInt64/Int64/Double/CharPtr/HandleIndexed)
// so dispatch is a straightforward type-and-id switch rather than a
// generic reflection-based lookup (spec §4.8).
type PropertyId uint32

const (
	// Trace properties.
	TraceStartTimeUInt64 PropertyId = iota
	TraceEndTimeUInt64
	TraceNumTracksUInt64
	TraceMetadataLoadedUInt64
	TraceStringCharPtrIndexed
	TraceMemoryFootprintUInt64
	TraceTrackHandleIndexed
	TraceFlowTraceHandleByEventID
	TraceStackTraceHandleByEventID
	TraceExtDataHandleByEventID

	// Track properties.
	TrackIdUInt64
	TrackCategoryUInt64
	TrackMinTimestampUInt64
	TrackMaxTimestampUInt64
	TrackRecordCountUInt64
	TrackMinValueDouble
	TrackMaxValueDouble
	TrackNumSlicesUInt64
	TrackSliceHandleIndexed
	TrackSliceHandleByTimestamp

	// Slice properties.
	SliceStartUInt64
	SliceEndUInt64
	SliceNumRecordsUInt64
	SliceIsCompleteUInt64
	SliceRecordTimestampUInt64Indexed
	SliceRecordDurationInt64Indexed
	SliceRecordIndexByTimestamp
	SliceRecordValueDoubleIndexed

	// FlowTrace properties.
	FlowTraceNumLinksUInt64
	FlowTraceEndpointEventIdUInt64Indexed

	// StackTrace properties.
	StackTraceNumFramesUInt64
	StackTraceFrameNameCharPtrIndexed

	// ExtData properties. Field values are looked up by name via
	// GetExtDataField, not through this enum (a name doesn't fit the
	// uint64 idx slot).
	ExtDataFieldCountUInt64

	// Table properties.
	TableNumRowsUInt64
	TableNumColumnsUInt64
	TableColumnNameCharPtrIndexed
	TableRowHandleIndexed

	// TableRow properties.
	TableRowCellInt64Indexed
	TableRowCellDoubleIndexed
	TableRowCellCharPtrIndexed

	// TopologyNode properties.
	TopologyNodeKindUInt64
	TopologyNodeChildHandleIndexed
	TopologyNodePropertyUInt64Indexed
	TopologyNodePropertyDoubleIndexed
	TopologyNodePropertyCharPtrIndexed
)

// GetUint64 reads a u64-typed property. idx is overloaded per spec
// §4.8: an ordinal for *Indexed properties, a packed EventId for
// event-keyed properties, a (start,end) hash for timestamp-keyed
// slice lookups, and ignored (pass 0) for scalar-one properties.
func GetUint64(h Handle, prop PropertyId, idx uint64) (uint64, types.Result) {
	switch h.Kind {
	case KindTrace:
		tr, ok := h.Ptr.(*datamodel.Trace)
		if !ok {
			return 0, types.InvalidProperty
		}
		return traceUint64(tr, prop, idx)
	case KindTrack:
		t, ok := h.Ptr.(*datamodel.Track)
		if !ok {
			return 0, types.InvalidProperty
		}
		return trackUint64(t, prop, idx)
	case KindSlice:
		s, ok := h.Ptr.(datamodel.TrackSlice)
		if !ok {
			return 0, types.InvalidProperty
		}
		return sliceUint64(s, prop, idx)
	case KindFlowTrace:
		ft, ok := h.Ptr.(flowTraceRef)
		if !ok {
			return 0, types.InvalidProperty
		}
		return flowTraceUint64(ft, prop, idx)
	case KindStackTrace:
		st, ok := h.Ptr.(stackFrameRef)
		if !ok {
			return 0, types.InvalidProperty
		}
		return stackTraceUint64(st, prop, idx)
	case KindExtData:
		e, ok := h.Ptr.(*datamodel.ExtData)
		if !ok {
			return 0, types.InvalidProperty
		}
		return extDataUint64(e, prop)
	case KindTable:
		tbl, ok := h.Ptr.(*datamodel.QueryResultTable)
		if !ok {
			return 0, types.InvalidProperty
		}
		return tableUint64(tbl, prop)
	case KindTopologyNode:
		n, ok := h.Ptr.(*datamodel.TopologyNode)
		if !ok {
			return 0, types.InvalidProperty
		}
		return topologyUint64(n, prop, idx)
	default:
		return 0, types.InvalidProperty
	}
}

// GetInt64 reads an i64-typed property (currently only slice record
// durations and table-row integer cells).
func GetInt64(h Handle, prop PropertyId, idx uint64) (int64, types.Result) {
	switch h.Kind {
	case KindSlice:
		s, ok := h.Ptr.(datamodel.TrackSlice)
		if !ok {
			return 0, types.InvalidProperty
		}
		if prop != SliceRecordDurationInt64Indexed {
			return 0, types.InvalidProperty
		}
		es, ok := s.(*datamodel.EventTrackSlice)
		if !ok {
			return 0, types.InvalidProperty
		}
		rec, ok := es.RecordAt(int(idx))
		if !ok {
			return 0, types.InvalidProperty
		}
		return rec.Duration, types.Success
	case KindTableRow:
		row, ok := h.Ptr.(tableRowRef)
		if !ok {
			return 0, types.InvalidProperty
		}
		if prop != TableRowCellInt64Indexed {
			return 0, types.InvalidProperty
		}
		cell, ok := row.table.Cell(row.row, int(idx))
		if !ok || cell.Kind != types.ValueInt {
			return 0, types.InvalidProperty
		}
		return cell.Int, types.Success
	default:
		return 0, types.InvalidProperty
	}
}

// GetFloat64 reads an f64-typed property.
func GetFloat64(h Handle, prop PropertyId, idx uint64) (float64, types.Result) {
	switch h.Kind {
	case KindTrack:
		t, ok := h.Ptr.(*datamodel.Track)
		if !ok {
			return 0, types.InvalidProperty
		}
		_, _, _, minVal, maxVal, haveVal := t.Stats()
		if !haveVal {
			return 0, types.NotLoaded
		}
		switch prop {
		case TrackMinValueDouble:
			return minVal, types.Success
		case TrackMaxValueDouble:
			return maxVal, types.Success
		default:
			return 0, types.InvalidProperty
		}
	case KindSlice:
		s, ok := h.Ptr.(datamodel.TrackSlice)
		if !ok {
			return 0, types.InvalidProperty
		}
		ps, ok := s.(*datamodel.PmcTrackSlice)
		if !ok || prop != SliceRecordValueDoubleIndexed {
			return 0, types.InvalidProperty
		}
		rec, ok := ps.RecordAt(int(idx))
		if !ok {
			return 0, types.InvalidProperty
		}
		return rec.Value, types.Success
	case KindTableRow:
		row, ok := h.Ptr.(tableRowRef)
		if !ok || prop != TableRowCellDoubleIndexed {
			return 0, types.InvalidProperty
		}
		cell, ok := row.table.Cell(row.row, int(idx))
		if !ok || cell.Kind != types.ValueDouble {
			return 0, types.InvalidProperty
		}
		return cell.Double, types.Success
	case KindTopologyNode:
		n, ok := h.Ptr.(*datamodel.TopologyNode)
		if !ok || prop != TopologyNodePropertyDoubleIndexed {
			return 0, types.InvalidProperty
		}
		v, ok := n.Property(uint32(idx))
		if !ok || v.Type != types.ValueDouble {
			return 0, types.InvalidProperty
		}
		return v.Double, types.Success
	default:
		return 0, types.InvalidProperty
	}
}

// tableRowRef addresses one row of a QueryResultTable; GetHandle
// constructs these for TableRowHandleIndexed.
type tableRowRef struct {
	table *datamodel.QueryResultTable
	row   int
}
