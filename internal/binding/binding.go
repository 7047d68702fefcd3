// Package binding defines the explicit seam between a Database and a
// Trace: a record of function values the Database calls into as it
// streams rows, so it can mutate the Trace without holding any
// reference to Trace internals. It replaces the mutual friendship the
// original C++ model used between its Trace and Database classes
// (spec §4.4, §7's "Mutual friendship between Trace and Database").
package binding

import (
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// Binding is the function-value bundle installed into a Database by
// Bind. Every function takes the relevant owning entity (or its
// identifying key) as its first parameter and returns the standard
// result taxonomy or a concrete handle, matching spec §4.4's
// description of the binding record.
type Binding struct {
	FuncAddTrack func(category types.TrackCategory, identifier datamodel.IdentifierTuple) *datamodel.Track

	FuncFindTrack func(category types.TrackCategory, identifier datamodel.IdentifierTuple) (*datamodel.Track, bool)

	FuncCheckSliceExists func(track *datamodel.Track, start, end types.Timestamp) (datamodel.TrackSlice, bool)

	FuncAddSlice func(track *datamodel.Track, start, end types.Timestamp) datamodel.TrackSlice

	FuncAddEventRecord func(slice datamodel.TrackSlice, r datamodel.EventRecord)

	FuncAddPmcRecord func(slice datamodel.TrackSlice, r datamodel.PmcRecord)

	FuncCompleteSlice func(slice datamodel.TrackSlice)

	FuncRemoveSlice func(track *datamodel.Track, start, end types.Timestamp) types.Result

	FuncCheckEventPropertyExists func(kind types.EventPropertyType, id types.EventId) bool

	FuncAddFlowLink func(link datamodel.FlowLink)

	FuncSetStackTrace func(id types.EventId, frames []datamodel.StackFrame)

	FuncEventExtData func(id types.EventId) *datamodel.ExtData

	FuncAppendString func(s string) datamodel.StringId

	FuncSetEventLevel func(id types.EventId, level uint32)

	FuncSetTimeRange func(start, end types.Timestamp)

	FuncAddTopologyNode func(tuple datamodel.IdentifierTuple, kindForLevel func(level string) (datamodel.NodeKind, bool)) *datamodel.TopologyNode

	FuncAddTopologyProperty func(tuple datamodel.IdentifierTuple, propID uint32, value datamodel.PropertyValue) types.Result

	FuncSetMetadataLoaded func()

	FuncMetadataLoaded func() bool

	FuncAddTable func(id types.TableId, columns []string) *datamodel.QueryResultTable

	FuncGetTable func(id types.TableId) (*datamodel.QueryResultTable, bool)

	FuncDeleteSliceAtTimeRange func(start, end types.Timestamp) types.Result

	FuncDeleteSliceByHandle func(trackID types.TrackId, slice datamodel.TrackSlice) types.Result

	FuncDeleteAllSlices func() types.Result

	FuncDeleteEventPropertyFor func(kind types.EventPropertyType, id types.EventId) types.Result

	FuncDeleteAllEventPropertiesFor func(kind types.EventPropertyType) types.Result

	FuncDeleteTableAt func(id types.TableId) types.Result

	FuncDeleteAllTables func() types.Result

	FuncAddExtDataAttribute func(id types.EventId, rec datamodel.AttributeRecord) types.Result

	FuncAddExtDataArgument func(id types.EventId, rec datamodel.ArgumentRecord) types.Result
}

// Bind constructs the Binding for trace. Called once by
// Database.BindTrace (see package database), giving the Database every
// mutator it needs without a back-reference to *datamodel.Trace.
func Bind(trace *datamodel.Trace) *Binding {
	return &Binding{
		FuncAddTrack: func(category types.TrackCategory, identifier datamodel.IdentifierTuple) *datamodel.Track {
			return trace.AddTrack(category, identifier)
		},
		FuncFindTrack: func(category types.TrackCategory, identifier datamodel.IdentifierTuple) (*datamodel.Track, bool) {
			return trace.FindTrackByIdentifier(category, identifier)
		},
		FuncCheckSliceExists: func(track *datamodel.Track, start, end types.Timestamp) (datamodel.TrackSlice, bool) {
			return track.FindSlice(start, end)
		},
		FuncAddSlice: func(track *datamodel.Track, start, end types.Timestamp) datamodel.TrackSlice {
			return track.AddSlice(start, end)
		},
		FuncAddEventRecord: func(slice datamodel.TrackSlice, r datamodel.EventRecord) {
			if es, ok := slice.(*datamodel.EventTrackSlice); ok {
				es.AddRecord(r)
			}
		},
		FuncAddPmcRecord: func(slice datamodel.TrackSlice, r datamodel.PmcRecord) {
			if ps, ok := slice.(*datamodel.PmcTrackSlice); ok {
				ps.AddRecord(r)
			}
		},
		FuncCompleteSlice: func(slice datamodel.TrackSlice) {
			slice.SetComplete()
		},
		FuncRemoveSlice: func(track *datamodel.Track, start, end types.Timestamp) types.Result {
			return track.DeleteSliceAtTime(start, end)
		},
		FuncCheckEventPropertyExists: func(kind types.EventPropertyType, id types.EventId) bool {
			switch kind {
			case types.PropFlowTrace:
				return trace.FlowTrace().Exists(id)
			case types.PropStackTrace:
				return trace.StackTrace().Exists(id)
			case types.PropExtData:
				return trace.HasEventExtData(id)
			default:
				return false
			}
		},
		FuncAddFlowLink: func(link datamodel.FlowLink) {
			trace.FlowTrace().AddLink(link)
		},
		FuncSetStackTrace: func(id types.EventId, frames []datamodel.StackFrame) {
			trace.StackTrace().SetStack(id, frames)
		},
		FuncEventExtData: func(id types.EventId) *datamodel.ExtData {
			return trace.EventExtData(id)
		},
		FuncAppendString: func(s string) datamodel.StringId {
			return trace.AppendString(s)
		},
		FuncSetEventLevel: func(id types.EventId, level uint32) {
			trace.SetEventLevel(id, level)
		},
		FuncSetTimeRange: func(start, end types.Timestamp) {
			trace.SetTimeRange(start, end)
		},
		FuncAddTopologyNode: func(tuple datamodel.IdentifierTuple, kindForLevel func(level string) (datamodel.NodeKind, bool)) *datamodel.TopologyNode {
			return trace.Topology().AddNode(tuple, kindForLevel)
		},
		FuncAddTopologyProperty: func(tuple datamodel.IdentifierTuple, propID uint32, value datamodel.PropertyValue) types.Result {
			return trace.Topology().AddProperty(tuple, propID, value)
		},
		FuncSetMetadataLoaded: func() {
			trace.SetMetadataLoaded()
		},
		FuncMetadataLoaded: func() bool {
			return trace.MetadataLoaded()
		},
		FuncAddTable: func(id types.TableId, columns []string) *datamodel.QueryResultTable {
			tbl := datamodel.NewQueryResultTable(id, columns)
			trace.AddTable(tbl)
			return tbl
		},
		FuncGetTable: func(id types.TableId) (*datamodel.QueryResultTable, bool) {
			return trace.Table(id)
		},
		FuncDeleteSliceAtTimeRange: func(start, end types.Timestamp) types.Result {
			return trace.DeleteSliceAtTimeRange(start, end)
		},
		FuncDeleteSliceByHandle: func(trackID types.TrackId, slice datamodel.TrackSlice) types.Result {
			return trace.DeleteSliceByHandle(trackID, slice)
		},
		FuncDeleteAllSlices: func() types.Result {
			return trace.DeleteAllSlices()
		},
		FuncDeleteEventPropertyFor: func(kind types.EventPropertyType, id types.EventId) types.Result {
			return trace.DeleteEventPropertyFor(kind, id)
		},
		FuncDeleteAllEventPropertiesFor: func(kind types.EventPropertyType) types.Result {
			return trace.DeleteAllEventPropertiesFor(kind)
		},
		FuncDeleteTableAt: func(id types.TableId) types.Result {
			return trace.DeleteTableAt(id)
		},
		FuncDeleteAllTables: func() types.Result {
			return trace.DeleteAllTables()
		},
		FuncAddExtDataAttribute: func(id types.EventId, rec datamodel.AttributeRecord) types.Result {
			return trace.EventExtData(id).AddAttribute(rec)
		},
		FuncAddExtDataArgument: func(id types.EventId, rec datamodel.ArgumentRecord) types.Result {
			return trace.EventExtData(id).AddArgument(rec)
		},
	}
}
