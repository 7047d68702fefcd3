package handle

import (
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// DeleteSliceAtTimeRange removes the slice with the exact (start, end)
// pair from every track owned by the Trace h addresses (spec §4.4's
// trace-wide delete_time_slice(start, end)).
func DeleteSliceAtTimeRange(h Handle, start, end types.Timestamp) types.Result {
	tr, ok := h.Ptr.(*datamodel.Trace)
	if h.Kind != KindTrace || !ok {
		return types.InvalidProperty
	}
	return tr.DeleteSliceAtTimeRange(start, end)
}

// DeleteSliceByHandle removes slice from the track identified by
// trackID (spec §4.4's delete_time_slice(track_id, handle) overload,
// disambiguating a hash collision).
func DeleteSliceByHandle(h Handle, trackID types.TrackId, slice Handle) types.Result {
	tr, ok := h.Ptr.(*datamodel.Trace)
	if h.Kind != KindTrace || !ok {
		return types.InvalidProperty
	}
	s, ok := slice.Ptr.(datamodel.TrackSlice)
	if slice.Kind != KindSlice || !ok {
		return types.InvalidProperty
	}
	return tr.DeleteSliceByHandle(trackID, s)
}

// DeleteAllSlices clears every slice on every track owned by the Trace
// h addresses (spec §4.4's delete_all_time_slices).
func DeleteAllSlices(h Handle) types.Result {
	tr, ok := h.Ptr.(*datamodel.Trace)
	if h.Kind != KindTrace || !ok {
		return types.InvalidProperty
	}
	return tr.DeleteAllSlices()
}

// DeleteEventPropertyFor removes the resolved FlowTrace, StackTrace, or
// ExtData side-record for a single event id (spec §4.4's
// delete_event_property_for).
func DeleteEventPropertyFor(h Handle, kind types.EventPropertyType, id types.EventId) types.Result {
	tr, ok := h.Ptr.(*datamodel.Trace)
	if h.Kind != KindTrace || !ok {
		return types.InvalidProperty
	}
	return tr.DeleteEventPropertyFor(kind, id)
}

// DeleteAllEventPropertiesFor clears every resolved side-record of the
// given kind across the whole trace (spec §4.4's
// delete_all_event_properties_for).
func DeleteAllEventPropertiesFor(h Handle, kind types.EventPropertyType) types.Result {
	tr, ok := h.Ptr.(*datamodel.Trace)
	if h.Kind != KindTrace || !ok {
		return types.InvalidProperty
	}
	return tr.DeleteAllEventPropertiesFor(kind)
}

// DeleteTableAt removes one materialized query-result table (spec
// §4.4's delete_table_at).
func DeleteTableAt(h Handle, id types.TableId) types.Result {
	tr, ok := h.Ptr.(*datamodel.Trace)
	if h.Kind != KindTrace || !ok {
		return types.InvalidProperty
	}
	return tr.DeleteTableAt(id)
}

// DeleteAllTables clears every materialized query-result table (spec
// §4.4's delete_all_tables).
func DeleteAllTables(h Handle) types.Result {
	tr, ok := h.Ptr.(*datamodel.Trace)
	if h.Kind != KindTrace || !ok {
		return types.InvalidProperty
	}
	return tr.DeleteAllTables()
}
