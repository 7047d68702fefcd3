package datamodel

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rocprofvis/datamodel/pkg/refcache"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// HistogramParams configures the bucket layout used when a track's
// histogram is (re)computed, e.g. on metadata-load completion.
type HistogramParams struct {
	BucketCount int
	LinearScale bool
}

// Trace is the root aggregate: it owns every Track, every side-table,
// the string pool, and the event-level map, and exposes the
// reader-writer lock that every structural mutation to those owned
// collections takes (spec §4.4, §5: lock order is always Trace →
// entity, never the reverse).
//
// A Trace is created empty by NewTrace and is mutated exclusively
// through loader callbacks reached via the binding record built in
// package binding — nothing outside this package and package binding
// should hold a Trace write lock.
type Trace struct {
	mu sync.RWMutex

	startTime types.Timestamp
	endTime   types.Timestamp
	haveRange bool

	strings    *stringPool
	sortOrder  []StringId // index into strings, sorted by string value
	sortStale  bool
	eventLevel map[types.EventId]uint32

	histogramParams HistogramParams
	metadataLoaded  bool

	tracks   []*Track
	tracksBy map[types.TrackId]*Track
	nextTID  types.TrackId

	flowTrace  *FlowTraceTable
	stackTrace *StackTraceTable
	extData    map[types.EventId]*ExtData

	tables   map[types.TableId]*QueryResultTable
	refCache *refcache.Cache

	topology *TopologyTree

	logger *logrus.Logger
}

// NewTrace constructs an empty Trace bound to no database.
func NewTrace(logger *logrus.Logger) *Trace {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Trace{
		strings:    newStringPool(),
		eventLevel: make(map[types.EventId]uint32),
		tracksBy:   make(map[types.TrackId]*Track),
		flowTrace:  NewFlowTraceTable(),
		stackTrace: NewStackTraceTable(),
		extData:    make(map[types.EventId]*ExtData),
		tables:     make(map[types.TableId]*QueryResultTable),
		refCache:   refcache.New(),
		topology:   NewTopologyTree(),
		logger:     logger,
	}
}

// RefCache returns the Trace's shared reference cache, used by
// ExtData and by the loader's deferred foreign-key resolution pass.
func (t *Trace) RefCache() *refcache.Cache { return t.refCache }

// Topology returns the Trace's topology tree.
func (t *Trace) Topology() *TopologyTree { return t.topology }

// AppendString interns s into the Trace's string pool and returns its
// permanent id. Invariant (a) from spec §3: the index assigned on
// insertion never changes for the lifetime of the Trace.
func (t *Trace) AppendString(s string) StringId {
	id := t.strings.Intern(s)
	t.mu.Lock()
	t.sortStale = true
	t.mu.Unlock()
	return id
}

// GetStringAt returns the string for id, or ("", false).
func (t *Trace) GetStringAt(id StringId) (string, bool) {
	return t.strings.Lookup(id)
}

// StringPoolLen returns the number of interned strings so far, used
// by the loader to record symbols_offset (spec §4.3 step 1).
func (t *Trace) StringPoolLen() int {
	return t.strings.Len()
}

// rebuildSortOrder recomputes the sorted string index, called once at
// metadata-load completion (spec §3: "a sort-index over strings
// computed once at metadata-load completion").
func (t *Trace) rebuildSortOrder() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.sortStale {
		return
	}
	n := t.strings.Len()
	order := make([]StringId, n)
	for i := range order {
		order[i] = StringId(i)
	}
	sort.Slice(order, func(i, j int) bool {
		si, _ := t.strings.Lookup(order[i])
		sj, _ := t.strings.Lookup(order[j])
		return si < sj
	})
	t.sortOrder = order
	t.sortStale = false
}

// SortedStringAt returns the id at rank i of the sorted string order.
func (t *Trace) SortedStringAt(i int) (StringId, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.sortOrder) {
		return 0, false
	}
	return t.sortOrder[i], true
}

// SetEventLevel records the graph level for an event id, used by the
// UI to lay out nested flame-graph style regions.
func (t *Trace) SetEventLevel(id types.EventId, level uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eventLevel[id] = level
}

// EventLevel returns the recorded graph level for id, if any.
func (t *Trace) EventLevel(id types.EventId) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lvl, ok := t.eventLevel[id]
	return lvl, ok
}

// SetTimeRange records the trace's overall start/end time, typically
// set once by ReadMetadataAsync.
func (t *Trace) SetTimeRange(start, end types.Timestamp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime, t.endTime = start, end
	t.haveRange = true
}

// TimeRange returns the trace's overall start/end time.
func (t *Trace) TimeRange() (start, end types.Timestamp, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startTime, t.endTime, t.haveRange
}

// SetHistogramParams stores the histogram bucket configuration.
func (t *Trace) SetHistogramParams(p HistogramParams) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.histogramParams = p
}

// HistogramParams returns the histogram bucket configuration.
func (t *Trace) HistogramParams() HistogramParams {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.histogramParams
}

// MetadataLoaded reports whether SetMetadataLoaded has been called.
// Invariant (b) from spec §3: once true, never reverts.
func (t *Trace) MetadataLoaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metadataLoaded
}

// SetMetadataLoaded flips the metadata_loaded flag and triggers the
// one-time sorted-string-index rebuild. Idempotent.
func (t *Trace) SetMetadataLoaded() {
	t.mu.Lock()
	if t.metadataLoaded {
		t.mu.Unlock()
		return
	}
	t.metadataLoaded = true
	t.mu.Unlock()
	t.rebuildSortOrder()
}

// AddTrack creates a new Track for the given category and identifier
// tuple and assigns it the next monotonic TrackId. Called by the
// loader on first sighting of a new identifier tuple (spec §4.5).
func (t *Trace) AddTrack(category types.TrackCategory, identifier IdentifierTuple) *Track {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextTID
	t.nextTID++
	tr := NewTrack(id, category, identifier, t.logger)
	t.tracks = append(t.tracks, tr)
	t.tracksBy[id] = tr
	return tr
}

// FindTrackByIdentifier linearly scans for a track whose identifier
// tuple matches, within the given category. Used by the loader to
// avoid creating duplicate tracks for the same process/thread/queue
// seen across multiple rows.
func (t *Trace) FindTrackByIdentifier(category types.TrackCategory, identifier IdentifierTuple) (*Track, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tr := range t.tracks {
		if tr.Category() != category {
			continue
		}
		match := true
		for _, id := range identifier {
			if id.Level == "" {
				continue
			}
			other, ok := tr.Identifier().Find(id.Level)
			if !ok || !other.Equal(id) {
				match = false
				break
			}
		}
		if match {
			return tr, true
		}
	}
	return nil, false
}

// Track returns the track with the given id, if present.
func (t *Trace) Track(id types.TrackId) (*Track, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tr, ok := t.tracksBy[id]
	return tr, ok
}

// Tracks returns a snapshot of every owned track.
func (t *Trace) Tracks() []*Track {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Track, len(t.tracks))
	copy(out, t.tracks)
	return out
}

// NumTracks returns the number of owned tracks.
func (t *Trace) NumTracks() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tracks)
}

// FlowTrace returns the Trace-owned flow-graph side-table.
func (t *Trace) FlowTrace() *FlowTraceTable { return t.flowTrace }

// StackTrace returns the Trace-owned call-stack side-table.
func (t *Trace) StackTrace() *StackTraceTable { return t.stackTrace }

// EventExtData returns the event-level ExtData for id, creating it if
// absent. Track-level ExtData lives on Track itself (spec §4.5:
// sentinel event id = 0 denotes track-level ownership).
func (t *Trace) EventExtData(id types.EventId) *ExtData {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.extData[id]
	if !ok {
		e = NewExtData()
		e.Bind(t.refCache)
		t.extData[id] = e
	}
	return e
}

// HasEventExtData reports whether event-level ExtData exists for id
// without creating it, for CheckEventPropertyExists dedup.
func (t *Trace) HasEventExtData(id types.EventId) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.extData[id]
	return ok
}

// AddTable registers a QueryResultTable under its id, overwriting
// any previous table with the same id (the loader only calls this
// after a fingerprint-based cache miss; see spec §8 property 6).
func (t *Trace) AddTable(tbl *QueryResultTable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tables[tbl.ID()] = tbl
}

// Table returns the table with the given id, if present.
func (t *Trace) Table(id types.TableId) (*QueryResultTable, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tbl, ok := t.tables[id]
	return tbl, ok
}

// GetMemoryFootprint sums the estimated byte size of every owned
// structure: strings, tracks (and their slices), side-tables, tables,
// topology. Monotonically non-decreasing as records are added and
// never decreasing except across an explicit delete (spec §8
// property 8).
func (t *Trace) GetMemoryFootprint() int64 {
	t.mu.RLock()
	tracks := make([]*Track, len(t.tracks))
	copy(tracks, t.tracks)
	tables := make([]*QueryResultTable, 0, len(t.tables))
	for _, tbl := range t.tables {
		tables = append(tables, tbl)
	}
	extData := make([]*ExtData, 0, len(t.extData))
	for _, e := range t.extData {
		extData = append(extData, e)
	}
	t.mu.RUnlock()

	total := t.strings.Bytes() + t.flowTrace.Bytes() + t.stackTrace.Bytes() + t.topology.Bytes()
	for _, tr := range tracks {
		total += tr.Bytes()
		for _, s := range tr.Slices() {
			total += s.Bytes()
		}
	}
	for _, tbl := range tables {
		total += tbl.Bytes()
	}
	for _, e := range extData {
		total += e.Bytes()
	}
	return total
}

// DeleteTrack removes a track and all of its owned slices. Per spec
// §4.7, deleting an entity destroys it and all owned sub-entities.
func (t *Trace) DeleteTrack(id types.TrackId) types.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.tracksBy[id]
	if !ok {
		return types.NotLoaded
	}
	tr.DeleteAllSlices()
	delete(t.tracksBy, id)
	for i, candidate := range t.tracks {
		if candidate == tr {
			t.tracks = append(t.tracks[:i], t.tracks[i+1:]...)
			break
		}
	}
	return types.Success
}

// DeleteSliceAtTimeRange removes the slice with the exact (start, end)
// pair from every owned track, unlike Track.DeleteSliceAtTime which is
// scoped to one track (spec §4.4's trace-wide delete_time_slice).
func (t *Trace) DeleteSliceAtTimeRange(start, end types.Timestamp) types.Result {
	t.mu.RLock()
	tracks := make([]*Track, len(t.tracks))
	copy(tracks, t.tracks)
	t.mu.RUnlock()

	deleted := false
	for _, tr := range tracks {
		if tr.DeleteSliceAtTime(start, end) == types.Success {
			deleted = true
		}
	}
	if !deleted {
		return types.NotLoaded
	}
	return types.Success
}

// DeleteSliceByHandle removes slice from the track identified by
// trackID, disambiguating the hash-collision case Track.GetSliceAtTime
// rejects (spec §4.4's delete_time_slice(track_id, handle) overload).
func (t *Trace) DeleteSliceByHandle(trackID types.TrackId, slice TrackSlice) types.Result {
	tr, ok := t.Track(trackID)
	if !ok {
		return types.NotLoaded
	}
	return tr.DeleteSliceByHandle(slice)
}

// DeleteAllSlices clears every slice on every owned track (spec §4.4's
// delete_all_time_slices).
func (t *Trace) DeleteAllSlices() types.Result {
	t.mu.RLock()
	tracks := make([]*Track, len(t.tracks))
	copy(tracks, t.tracks)
	t.mu.RUnlock()

	for _, tr := range tracks {
		tr.DeleteAllSlices()
	}
	return types.Success
}

// DeleteEventPropertyFor removes the resolved FlowTrace, StackTrace,
// or ExtData side-record for a single event id (spec §4.4's
// delete_event_property_for).
func (t *Trace) DeleteEventPropertyFor(kind types.EventPropertyType, id types.EventId) types.Result {
	switch kind {
	case types.PropFlowTrace:
		t.flowTrace.Delete(id)
		return types.Success
	case types.PropStackTrace:
		t.stackTrace.Delete(id)
		return types.Success
	case types.PropExtData:
		t.mu.Lock()
		_, ok := t.extData[id]
		delete(t.extData, id)
		t.mu.Unlock()
		if !ok {
			return types.NotLoaded
		}
		return types.Success
	default:
		return types.InvalidParameter
	}
}

// DeleteAllEventPropertiesFor clears every resolved side-record of the
// given kind across the whole trace (spec §4.4's
// delete_all_event_properties_for).
func (t *Trace) DeleteAllEventPropertiesFor(kind types.EventPropertyType) types.Result {
	switch kind {
	case types.PropFlowTrace:
		t.flowTrace.Clear()
		return types.Success
	case types.PropStackTrace:
		t.stackTrace.Clear()
		return types.Success
	case types.PropExtData:
		t.mu.Lock()
		t.extData = make(map[types.EventId]*ExtData)
		t.mu.Unlock()
		return types.Success
	default:
		return types.InvalidParameter
	}
}

// DeleteTableAt removes one materialized query-result table (spec
// §4.4's delete_table_at).
func (t *Trace) DeleteTableAt(id types.TableId) types.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tables[id]; !ok {
		return types.NotLoaded
	}
	delete(t.tables, id)
	return types.Success
}

// DeleteAllTables clears every materialized query-result table (spec
// §4.4's delete_all_tables).
func (t *Trace) DeleteAllTables() types.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tables = make(map[types.TableId]*QueryResultTable)
	return types.Success
}
