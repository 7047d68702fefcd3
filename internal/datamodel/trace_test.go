package datamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocprofvis/datamodel/pkg/types"
)

func newTestTrace() *Trace {
	return NewTrace(nil)
}

func TestAppendStringIdentityIsStableAndDeduped(t *testing.T) {
	tr := newTestTrace()
	id1 := tr.AppendString("kernel_launch")
	id2 := tr.AppendString("memcpy")
	id1Again := tr.AppendString("kernel_launch")

	assert.Equal(t, id1, id1Again, "interning the same string twice must return the same id")
	assert.NotEqual(t, id1, id2)

	s, ok := tr.GetStringAt(id1)
	require.True(t, ok)
	assert.Equal(t, "kernel_launch", s)
}

func TestStringPoolLenTracksSymbolsOffset(t *testing.T) {
	tr := newTestTrace()
	assert.Equal(t, 0, tr.StringPoolLen())
	tr.AppendString("a")
	tr.AppendString("b")
	assert.Equal(t, 2, tr.StringPoolLen())
	tr.AppendString("a") // dup, does not grow the pool
	assert.Equal(t, 2, tr.StringPoolLen())
}

func TestMetadataLoadedNeverReverts(t *testing.T) {
	tr := newTestTrace()
	assert.False(t, tr.MetadataLoaded())
	tr.SetMetadataLoaded()
	assert.True(t, tr.MetadataLoaded())
	tr.SetMetadataLoaded() // idempotent
	assert.True(t, tr.MetadataLoaded())
}

func TestSortedStringOrderBuiltOnMetadataLoad(t *testing.T) {
	tr := newTestTrace()
	idZ := tr.AppendString("zeta")
	idA := tr.AppendString("alpha")

	_, ok := tr.SortedStringAt(0)
	assert.False(t, ok, "sort order not built until metadata load completes")

	tr.SetMetadataLoaded()

	first, ok := tr.SortedStringAt(0)
	require.True(t, ok)
	assert.Equal(t, idA, first)
	second, ok := tr.SortedStringAt(1)
	require.True(t, ok)
	assert.Equal(t, idZ, second)
}

func TestAddTrackAssignsMonotonicIds(t *testing.T) {
	tr := newTestTrace()
	ident := IdentifierTuple{NumIdentifier("node", 0), NumIdentifier("process", 1), NumIdentifier("thread", 2)}

	t1 := tr.AddTrack(types.TrackCPURegion, ident)
	t2 := tr.AddTrack(types.TrackKernelDispatch, ident)

	assert.Equal(t, types.TrackId(0), t1.ID())
	assert.Equal(t, types.TrackId(1), t2.ID())
	assert.Equal(t, 2, tr.NumTracks())
}

func TestFindTrackByIdentifierMatchesWithinCategory(t *testing.T) {
	tr := newTestTrace()
	ident := IdentifierTuple{NumIdentifier("node", 0), NumIdentifier("process", 5), NumIdentifier("thread", 1)}
	want := tr.AddTrack(types.TrackCPURegion, ident)

	// A different category with the same identifier tuple must not match.
	tr.AddTrack(types.TrackKernelDispatch, ident)

	found, ok := tr.FindTrackByIdentifier(types.TrackCPURegion, ident)
	require.True(t, ok)
	assert.Equal(t, want.ID(), found.ID())
}

func TestDeleteTrackRemovesFromBothIndexes(t *testing.T) {
	tr := newTestTrace()
	ident := IdentifierTuple{NumIdentifier("node", 0), NumIdentifier("process", 1), NumIdentifier("thread", 0)}
	track := tr.AddTrack(types.TrackMemoryCopy, ident)

	result := tr.DeleteTrack(track.ID())
	assert.Equal(t, types.Success, result)
	assert.Equal(t, 0, tr.NumTracks())

	_, ok := tr.Track(track.ID())
	assert.False(t, ok)
}

func TestDeleteTrackUnknownIdIsNotLoaded(t *testing.T) {
	tr := newTestTrace()
	assert.Equal(t, types.NotLoaded, tr.DeleteTrack(types.TrackId(999)))
}

func TestDeleteSliceAtTimeRangeRemovesMatchingSliceAcrossTracks(t *testing.T) {
	tr := newTestTrace()
	identA := IdentifierTuple{NumIdentifier("node", 0), NumIdentifier("process", 1), NumIdentifier("thread", 0)}
	identB := IdentifierTuple{NumIdentifier("node", 0), NumIdentifier("process", 2), NumIdentifier("thread", 0)}
	a := tr.AddTrack(types.TrackCPURegion, identA)
	b := tr.AddTrack(types.TrackCPURegion, identB)
	a.AddSlice(0, 100)
	b.AddSlice(0, 100)
	b.AddSlice(200, 300)

	result := tr.DeleteSliceAtTimeRange(0, 100)
	assert.Equal(t, types.Success, result)
	assert.Equal(t, 0, a.NumSlices())
	assert.Equal(t, 1, b.NumSlices())
}

func TestDeleteSliceAtTimeRangeNoMatchIsNotLoaded(t *testing.T) {
	tr := newTestTrace()
	assert.Equal(t, types.NotLoaded, tr.DeleteSliceAtTimeRange(0, 100))
}

func TestDeleteSliceByHandleRejectsUnknownTrack(t *testing.T) {
	tr := newTestTrace()
	assert.Equal(t, types.NotLoaded, tr.DeleteSliceByHandle(types.TrackId(999), nil))
}

func TestTraceDeleteAllSlicesClearsEveryTrack(t *testing.T) {
	tr := newTestTrace()
	ident := IdentifierTuple{NumIdentifier("node", 0), NumIdentifier("process", 1), NumIdentifier("thread", 0)}
	track := tr.AddTrack(types.TrackCPURegion, ident)
	track.AddSlice(0, 100)

	assert.Equal(t, types.Success, tr.DeleteAllSlices())
	assert.Equal(t, 0, track.NumSlices())
}

func TestDeleteEventPropertyForEachKind(t *testing.T) {
	tr := newTestTrace()
	id := types.NewEventId(1, types.OpLaunch)

	tr.FlowTrace().AddLink(FlowLink{From: id, To: types.NewEventId(2, types.OpDispatch)})
	assert.Equal(t, types.Success, tr.DeleteEventPropertyFor(types.PropFlowTrace, id))
	assert.False(t, tr.FlowTrace().Exists(id))

	tr.StackTrace().SetStack(id, []StackFrame{{Name: "main"}})
	assert.Equal(t, types.Success, tr.DeleteEventPropertyFor(types.PropStackTrace, id))
	assert.False(t, tr.StackTrace().Exists(id))

	tr.EventExtData(id)
	assert.Equal(t, types.Success, tr.DeleteEventPropertyFor(types.PropExtData, id))
	assert.False(t, tr.HasEventExtData(id))
	assert.Equal(t, types.NotLoaded, tr.DeleteEventPropertyFor(types.PropExtData, id))

	assert.Equal(t, types.InvalidParameter, tr.DeleteEventPropertyFor(types.EventPropertyType(99), id))
}

func TestDeleteAllEventPropertiesForEachKind(t *testing.T) {
	tr := newTestTrace()
	id1 := types.NewEventId(1, types.OpLaunch)
	id2 := types.NewEventId(2, types.OpLaunch)
	tr.FlowTrace().AddLink(FlowLink{From: id1, To: id2})
	tr.FlowTrace().AddLink(FlowLink{From: id2, To: id1})

	assert.Equal(t, types.Success, tr.DeleteAllEventPropertiesFor(types.PropFlowTrace))
	assert.False(t, tr.FlowTrace().Exists(id1))
	assert.False(t, tr.FlowTrace().Exists(id2))

	assert.Equal(t, types.InvalidParameter, tr.DeleteAllEventPropertiesFor(types.EventPropertyType(99)))
}

func TestDeleteTableAtAndDeleteAllTables(t *testing.T) {
	tr := newTestTrace()
	tr.AddTable(NewQueryResultTable(types.TableId(1), []string{"a"}))
	tr.AddTable(NewQueryResultTable(types.TableId(2), []string{"b"}))

	assert.Equal(t, types.Success, tr.DeleteTableAt(types.TableId(1)))
	_, ok := tr.Table(types.TableId(1))
	assert.False(t, ok)
	assert.Equal(t, types.NotLoaded, tr.DeleteTableAt(types.TableId(1)))

	assert.Equal(t, types.Success, tr.DeleteAllTables())
	_, ok = tr.Table(types.TableId(2))
	assert.False(t, ok)
}

func TestMemoryFootprintMonotonicAsStringsGrow(t *testing.T) {
	tr := newTestTrace()
	before := tr.GetMemoryFootprint()
	tr.AppendString("a long enough string to move the footprint")
	after := tr.GetMemoryFootprint()
	assert.Greater(t, after, before)
}

func TestEventExtDataCreatesOnceAndIsShared(t *testing.T) {
	tr := newTestTrace()
	id := types.NewEventId(1, types.OpLaunch)

	assert.False(t, tr.HasEventExtData(id))
	first := tr.EventExtData(id)
	assert.True(t, tr.HasEventExtData(id))
	second := tr.EventExtData(id)
	assert.Same(t, first, second)
}
