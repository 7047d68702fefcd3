package datamodel

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rocprofvis/datamodel/pkg/types"
)

// HistogramBucket is one bucket of a Track's value histogram (used by
// PMC tracks and, where meaningful, by event-duration tracks).
type HistogramBucket struct {
	LowerBound float64
	UpperBound float64
	Count      uint64
}

// activeEvent is an entry in a Track's nested-event stack, used by the
// loader to pair launch/dispatch "begin" rows with their matching
// "end" rows while streaming an unordered or nested event source (spec
// §3 Track attributes: "list of active events").
type activeEvent struct {
	EventID   types.EventId
	StartedAt types.Timestamp
	Depth     int
}

// Track is a labelled timeline belonging to exactly one Trace: a CPU
// thread region stream, a GPU kernel-dispatch queue, a memory
// copy/alloc stream, or a PMC counter source (spec §3).
//
// A Track is immutable except through loader callbacks holding the
// Trace write lock, or through its own lock for purely track-local
// bookkeeping (active-event stack, aggregate stats). Its slices are
// kept ordered by start time by Track.AddSlice; AddSlice does not
// reject a second slice with an existing (start, end) pair, so keeping
// those pairs unique is left to the loader.
type Track struct {
	id         types.TrackId
	category   types.TrackCategory
	identifier IdentifierTuple

	mu             sync.Mutex
	slices         []TrackSlice
	minTimestamp   types.Timestamp
	maxTimestamp   types.Timestamp
	recordCount    uint64
	minValue       float64
	maxValue       float64
	haveValueRange bool
	histogram      []HistogramBucket
	activeEvents   []activeEvent

	extData *ExtData

	logger *logrus.Logger
}

// NewTrack constructs a Track. Called only by Trace.AddTrack, which
// assigns the monotonic TrackId.
func NewTrack(id types.TrackId, category types.TrackCategory, identifier IdentifierTuple, logger *logrus.Logger) *Track {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Track{
		id:         id,
		category:   category,
		identifier: identifier,
		extData:    NewExtData(),
		logger:     logger,
	}
}

func (t *Track) ID() types.TrackId             { return t.id }
func (t *Track) Category() types.TrackCategory { return t.category }
func (t *Track) Identifier() IdentifierTuple   { return t.identifier }
func (t *Track) ExtData() *ExtData             { return t.extData }

// AddSlice constructs a new, empty slice of the variant matching the
// track's category and appends it in start-time order. It is the
// loader's responsibility to call this only for (start, end) pairs
// not already present; AddSlice itself does not dedup (the loader
// checks first with FindSlice's exact (start, end) match).
func (t *Track) AddSlice(start, end types.Timestamp) TrackSlice {
	var s TrackSlice
	if t.category.IsPMC() {
		s = NewPmcTrackSlice(start, end)
	} else {
		s = NewEventTrackSlice(start, end)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	i := 0
	for ; i < len(t.slices); i++ {
		if t.slices[i].Start() > start {
			break
		}
	}
	t.slices = append(t.slices, nil)
	copy(t.slices[i+1:], t.slices[i:])
	t.slices[i] = s

	t.logger.WithFields(logrus.Fields{
		"track_id": t.id,
		"start":    start,
		"end":      end,
	}).Debug("slice added")
	return s
}

// GetSliceAtTime linearly scans for a slice whose fingerprint equals
// key. Ambiguity — two distinct (start, end) pairs colliding on the
// xxhash fingerprint — returns (nil, NotLoaded) rather than picking
// one arbitrarily, per spec §4.5; callers who need unambiguous
// deletion use DeleteSliceByHandle instead (see open question in
// spec §9, resolved in DESIGN.md: reject on collision).
func (t *Track) GetSliceAtTime(key uint64) (TrackSlice, types.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var found TrackSlice
	hits := 0
	for _, s := range t.slices {
		if s.Key() == key {
			found = s
			hits++
		}
	}
	if hits == 0 {
		return nil, types.NotLoaded
	}
	if hits > 1 {
		return nil, types.NotLoaded
	}
	return found, types.Success
}

// FindSlice returns the exact-match slice for (start, end), or
// (nil, false).
func (t *Track) FindSlice(start, end types.Timestamp) (TrackSlice, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.slices {
		if s.Start() == start && s.End() == end {
			return s, true
		}
	}
	return nil, false
}

// DeleteSliceAtTime removes the slice with the exact (start, end)
// pair, if any.
func (t *Track) DeleteSliceAtTime(start, end types.Timestamp) types.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.slices {
		if s.Start() == start && s.End() == end {
			t.slices = append(t.slices[:i], t.slices[i+1:]...)
			return types.Success
		}
	}
	return types.NotLoaded
}

// DeleteSliceByHandle removes the given slice by identity rather than
// by fingerprint, disambiguating the hash-collision case noted on
// GetSliceAtTime.
func (t *Track) DeleteSliceByHandle(target TrackSlice) types.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.slices {
		if s == target {
			t.slices = append(t.slices[:i], t.slices[i+1:]...)
			return types.Success
		}
	}
	return types.NotLoaded
}

// DeleteAllSlices swaps the slice vector out under the lock, then
// drops references outside it — avoiding a lock-order inversion with
// any per-slice mutex a concurrent reader might be holding (spec
// §4.5, §5: "Trace → entity" lock order, never the reverse).
func (t *Track) DeleteAllSlices() {
	t.mu.Lock()
	old := t.slices
	t.slices = nil
	t.mu.Unlock()
	_ = old // dropped outside the lock
}

// Slices returns a snapshot of the current slice list in start-time
// order.
func (t *Track) Slices() []TrackSlice {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TrackSlice, len(t.slices))
	copy(out, t.slices)
	return out
}

// NumSlices reports the current slice count.
func (t *Track) NumSlices() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slices)
}

// ObserveRecord folds one record's timestamp (and, for PMC tracks,
// value) into the track's running min/max/count aggregates. Called by
// the loader as rows stream in.
func (t *Track) ObserveRecord(ts types.Timestamp, value float64, hasValue bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recordCount == 0 {
		t.minTimestamp = ts
		t.maxTimestamp = ts
	} else {
		if ts < t.minTimestamp {
			t.minTimestamp = ts
		}
		if ts > t.maxTimestamp {
			t.maxTimestamp = ts
		}
	}
	t.recordCount++
	if hasValue {
		if !t.haveValueRange {
			t.minValue, t.maxValue = value, value
			t.haveValueRange = true
		} else {
			if value < t.minValue {
				t.minValue = value
			}
			if value > t.maxValue {
				t.maxValue = value
			}
		}
	}
}

// Stats returns the track's aggregate timestamp/record-count/value
// range, for the handle layer's scalar getters.
func (t *Track) Stats() (minTs, maxTs types.Timestamp, count uint64, minVal, maxVal float64, haveVal bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.minTimestamp, t.maxTimestamp, t.recordCount, t.minValue, t.maxValue, t.haveValueRange
}

// PushActiveEvent records an in-progress nested event (begin row seen,
// matching end row not yet seen) on this track's stack.
func (t *Track) PushActiveEvent(id types.EventId, start types.Timestamp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeEvents = append(t.activeEvents, activeEvent{EventID: id, StartedAt: start, Depth: len(t.activeEvents)})
}

// PopActiveEvent removes and returns the most recently pushed active
// event, used when its matching end row arrives.
func (t *Track) PopActiveEvent() (types.EventId, types.Timestamp, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.activeEvents)
	if n == 0 {
		return 0, 0, false
	}
	e := t.activeEvents[n-1]
	t.activeEvents = t.activeEvents[:n-1]
	return e.EventID, e.StartedAt, true
}

// Bytes estimates the track's in-memory footprint, excluding its
// slices (the caller sums those separately since each slice is also
// independently reachable/deletable).
func (t *Track) Bytes() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(len(t.histogram))*24 + int64(len(t.activeEvents))*24 + t.extData.Bytes() + 96
}
