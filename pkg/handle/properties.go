package handle

import (
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/pkg/types"
)

func traceUint64(tr *datamodel.Trace, prop PropertyId, idx uint64) (uint64, types.Result) {
	switch prop {
	case TraceStartTimeUInt64:
		start, _, ok := timeRange(tr)
		if !ok {
			return 0, types.NotLoaded
		}
		return uint64(start), types.Success
	case TraceEndTimeUInt64:
		_, end, ok := timeRange(tr)
		if !ok {
			return 0, types.NotLoaded
		}
		return uint64(end), types.Success
	case TraceNumTracksUInt64:
		return uint64(tr.NumTracks()), types.Success
	case TraceMetadataLoadedUInt64:
		if tr.MetadataLoaded() {
			return 1, types.Success
		}
		return 0, types.Success
	case TraceMemoryFootprintUInt64:
		return uint64(tr.GetMemoryFootprint()), types.Success
	default:
		return 0, types.InvalidProperty
	}
}

func timeRange(tr *datamodel.Trace) (types.Timestamp, types.Timestamp, bool) {
	start, end, ok := tr.TimeRange()
	return start, end, ok
}

func trackUint64(t *datamodel.Track, prop PropertyId, idx uint64) (uint64, types.Result) {
	switch prop {
	case TrackIdUInt64:
		return uint64(t.ID()), types.Success
	case TrackCategoryUInt64:
		return uint64(t.Category()), types.Success
	case TrackMinTimestampUInt64:
		minTs, _, count, _, _, _ := t.Stats()
		if count == 0 {
			return 0, types.NotLoaded
		}
		return uint64(minTs), types.Success
	case TrackMaxTimestampUInt64:
		_, maxTs, count, _, _, _ := t.Stats()
		if count == 0 {
			return 0, types.NotLoaded
		}
		return uint64(maxTs), types.Success
	case TrackRecordCountUInt64:
		_, _, count, _, _, _ := t.Stats()
		return count, types.Success
	case TrackNumSlicesUInt64:
		return uint64(t.NumSlices()), types.Success
	default:
		return 0, types.InvalidProperty
	}
}

func sliceUint64(s datamodel.TrackSlice, prop PropertyId, idx uint64) (uint64, types.Result) {
	switch prop {
	case SliceStartUInt64:
		return uint64(s.Start()), types.Success
	case SliceEndUInt64:
		return uint64(s.End()), types.Success
	case SliceNumRecordsUInt64:
		return uint64(s.NumRecords()), types.Success
	case SliceIsCompleteUInt64:
		if s.IsComplete() {
			return 1, types.Success
		}
		return 0, types.Success
	case SliceRecordTimestampUInt64Indexed:
		es, ok := s.(*datamodel.EventTrackSlice)
		if !ok {
			return 0, types.InvalidProperty
		}
		rec, ok := es.RecordAt(int(idx))
		if !ok {
			return 0, types.InvalidProperty
		}
		return uint64(rec.Timestamp), types.Success
	case SliceRecordIndexByTimestamp:
		es, ok := s.(*datamodel.EventTrackSlice)
		if !ok {
			return 0, types.InvalidProperty
		}
		i, ok := es.ConvertTimestampToIndex(types.Timestamp(idx))
		if !ok {
			return 0, types.NotLoaded
		}
		return uint64(i), types.Success
	default:
		return 0, types.InvalidProperty
	}
}

// flowTraceRef and stackFrameRef bind a side-table to the single event
// id a FlowTrace/StackTrace handle addresses (obtained via
// GetHandle(TraceFlowTraceHandleByEventID/TraceStackTraceHandleByEventID)),
// since the getter's one overloaded idx slot can't carry both an
// event id and a within-event ordinal at once.
type flowTraceRef struct {
	table *datamodel.FlowTraceTable
	event types.EventId
}

func flowTraceUint64(ft flowTraceRef, prop PropertyId, idx uint64) (uint64, types.Result) {
	links, ok := ft.table.Links(ft.event)
	switch prop {
	case FlowTraceNumLinksUInt64:
		if !ok {
			return 0, types.Success
		}
		return uint64(len(links)), types.Success
	case FlowTraceEndpointEventIdUInt64Indexed:
		if !ok || int(idx) >= len(links) {
			return 0, types.InvalidProperty
		}
		return uint64(links[idx].To), types.Success
	default:
		return 0, types.InvalidProperty
	}
}

func stackTraceUint64(st stackFrameRef, prop PropertyId, idx uint64) (uint64, types.Result) {
	switch prop {
	case StackTraceNumFramesUInt64:
		frames, ok := st.table.Stack(st.event)
		if !ok {
			return 0, types.Success
		}
		return uint64(len(frames)), types.Success
	default:
		return 0, types.InvalidProperty
	}
}

func extDataUint64(e *datamodel.ExtData, prop PropertyId) (uint64, types.Result) {
	switch prop {
	case ExtDataFieldCountUInt64:
		return uint64(e.NumRecords()), types.Success
	default:
		return 0, types.InvalidProperty
	}
}

func tableUint64(tbl *datamodel.QueryResultTable, prop PropertyId) (uint64, types.Result) {
	switch prop {
	case TableNumRowsUInt64:
		return uint64(tbl.NumRows()), types.Success
	case TableNumColumnsUInt64:
		return uint64(len(tbl.Columns())), types.Success
	default:
		return 0, types.InvalidProperty
	}
}

func topologyUint64(n *datamodel.TopologyNode, prop PropertyId, idx uint64) (uint64, types.Result) {
	switch prop {
	case TopologyNodeKindUInt64:
		return uint64(n.Kind), types.Success
	case TopologyNodePropertyUInt64Indexed:
		v, ok := n.Property(uint32(idx))
		if !ok || v.Type != types.ValueInt {
			return 0, types.InvalidProperty
		}
		return v.Int, types.Success
	default:
		return 0, types.InvalidProperty
	}
}

// GetString reads a CharPtr-typed property. Per spec §4.8's
// out-parameter convention, a non-success result pairs with "" rather
// than a distinguishable sentinel.
func GetString(h Handle, prop PropertyId, idx uint64) (string, types.Result) {
	switch h.Kind {
	case KindTrace:
		tr, ok := h.Ptr.(*datamodel.Trace)
		if !ok || prop != TraceStringCharPtrIndexed {
			return "", types.InvalidProperty
		}
		s, ok := tr.GetStringAt(datamodel.StringId(idx))
		if !ok {
			return "", types.NotLoaded
		}
		return s, types.Success
	case KindStackTrace:
		st, ok := h.Ptr.(stackFrameRef)
		if !ok || prop != StackTraceFrameNameCharPtrIndexed {
			return "", types.InvalidProperty
		}
		frames, ok := st.table.Stack(st.event)
		if !ok || int(idx) >= len(frames) {
			return "", types.InvalidProperty
		}
		return frames[idx].Name, types.Success
	case KindExtData:
		// Field values are looked up by name via GetExtDataField, not
		// through this facade's idx slot.
		return "", types.InvalidProperty
	case KindTable:
		tbl, ok := h.Ptr.(*datamodel.QueryResultTable)
		if !ok || prop != TableColumnNameCharPtrIndexed {
			return "", types.InvalidProperty
		}
		cols := tbl.Columns()
		if int(idx) >= len(cols) {
			return "", types.InvalidProperty
		}
		return cols[idx], types.Success
	case KindTableRow:
		row, ok := h.Ptr.(tableRowRef)
		if !ok || prop != TableRowCellCharPtrIndexed {
			return "", types.InvalidProperty
		}
		cell, ok := row.table.Cell(row.row, int(idx))
		if !ok || cell.Kind != types.ValueString {
			return "", types.InvalidProperty
		}
		return cell.Str, types.Success
	case KindTopologyNode:
		n, ok := h.Ptr.(*datamodel.TopologyNode)
		if !ok || prop != TopologyNodePropertyCharPtrIndexed {
			return "", types.InvalidProperty
		}
		v, ok := n.Property(uint32(idx))
		if !ok || v.Type != types.ValueString {
			return "", types.InvalidProperty
		}
		return v.Str, types.Success
	default:
		return "", types.InvalidProperty
	}
}

// stackFrameRef binds a StackTraceTable to the event id a StackTrace
// handle addresses, same rationale as flowTraceRef above.
type stackFrameRef struct {
	table *datamodel.StackTraceTable
	event types.EventId
}

// GetExtDataField resolves a named ExtData field value, outside the
// uint64-indexed facade proper (spec §4.8 covers scalar/ordinal/
// event-id/timestamp index kinds; a field name fits none of those, so
// it gets its own accessor rather than a forced numeric encoding).
func GetExtDataField(h Handle, field string) (string, types.Result) {
	e, ok := h.Ptr.(*datamodel.ExtData)
	if h.Kind != KindExtData || !ok {
		return "", types.InvalidProperty
	}
	return e.Get(field)
}

// GetHandle reads a Handle-typed property: child/indexed references
// that chain into another object rather than a scalar.
func GetHandle(h Handle, prop PropertyId, idx uint64) (Handle, types.Result) {
	switch h.Kind {
	case KindTrace:
		tr, ok := h.Ptr.(*datamodel.Trace)
		if !ok {
			return Handle{}, types.InvalidProperty
		}
		switch prop {
		case TraceTrackHandleIndexed:
			track, ok := tr.Track(types.TrackId(idx))
			if !ok {
				return Handle{}, types.NotLoaded
			}
			return Handle{Kind: KindTrack, Ptr: track}, types.Success
		case TraceFlowTraceHandleByEventID:
			return Handle{Kind: KindFlowTrace, Ptr: flowTraceRef{table: tr.FlowTrace(), event: types.EventId(idx)}}, types.Success
		case TraceStackTraceHandleByEventID:
			return Handle{Kind: KindStackTrace, Ptr: stackFrameRef{table: tr.StackTrace(), event: types.EventId(idx)}}, types.Success
		case TraceExtDataHandleByEventID:
			return Handle{Kind: KindExtData, Ptr: tr.EventExtData(types.EventId(idx))}, types.Success
		default:
			return Handle{}, types.InvalidProperty
		}
	case KindTrack:
		t, ok := h.Ptr.(*datamodel.Track)
		if !ok {
			return Handle{}, types.InvalidProperty
		}
		switch prop {
		case TrackSliceHandleIndexed:
			slices := t.Slices()
			if int(idx) >= len(slices) {
				return Handle{}, types.InvalidProperty
			}
			return Handle{Kind: KindSlice, Ptr: slices[idx]}, types.Success
		case TrackSliceHandleByTimestamp:
			s, result := t.GetSliceAtTime(idx)
			if !result.Ok() {
				return Handle{}, result
			}
			return Handle{Kind: KindSlice, Ptr: s}, types.Success
		default:
			return Handle{}, types.InvalidProperty
		}
	case KindTable:
		tbl, ok := h.Ptr.(*datamodel.QueryResultTable)
		if !ok || prop != TableRowHandleIndexed {
			return Handle{}, types.InvalidProperty
		}
		if int(idx) >= tbl.NumRows() {
			return Handle{}, types.InvalidProperty
		}
		return Handle{Kind: KindTableRow, Ptr: tableRowRef{table: tbl, row: int(idx)}}, types.Success
	case KindTopologyNode:
		n, ok := h.Ptr.(*datamodel.TopologyNode)
		if !ok || prop != TopologyNodeChildHandleIndexed {
			return Handle{}, types.InvalidProperty
		}
		children := n.Children()
		if int(idx) >= len(children) {
			return Handle{}, types.InvalidProperty
		}
		return Handle{Kind: KindTopologyNode, Ptr: children[idx]}, types.Success
	default:
		return Handle{}, types.InvalidProperty
	}
}
