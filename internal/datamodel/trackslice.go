package datamodel

import (
	"sync"

	"github.com/rocprofvis/datamodel/pkg/fingerprint"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// TrackSlice is the common surface of EventTrackSlice and
// PmcTrackSlice: a half-open [Start, End) interval of one track's
// records, a completion latch, and a per-slice mutex (spec §3, §4.5,
// §5). Concrete slice types add their own typed accessors on top.
type TrackSlice interface {
	Start() types.Timestamp
	End() types.Timestamp
	Key() uint64
	NumRecords() int
	IsComplete() bool
	// WaitComplete blocks the calling goroutine until the slice
	// transitions to complete. Called by a reader that observed the
	// slice via CheckSliceExists but found it not yet complete (spec
	// §4.5).
	WaitComplete()
	// SetComplete flips the completion flag and wakes any waiters;
	// idempotent.
	SetComplete()
	// Bytes estimates the slice's in-memory footprint.
	Bytes() int64
}

type sliceBase struct {
	start types.Timestamp
	end   types.Timestamp

	mu       sync.Mutex
	cond     *sync.Cond
	complete bool
}

func newSliceBase(start, end types.Timestamp) sliceBase {
	sb := sliceBase{start: start, end: end}
	sb.cond = sync.NewCond(&sb.mu)
	return sb
}

func (s *sliceBase) Start() types.Timestamp { return s.start }
func (s *sliceBase) End() types.Timestamp   { return s.end }
func (s *sliceBase) Key() uint64            { return fingerprint.Slice(s.start, s.end) }

func (s *sliceBase) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

func (s *sliceBase) WaitComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.complete {
		s.cond.Wait()
	}
}

func (s *sliceBase) SetComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return
	}
	s.complete = true
	s.cond.Broadcast()
}

// EventTrackSlice holds EventRecords for CPU-region, kernel-dispatch,
// memory-copy and memory-allocate tracks.
type EventTrackSlice struct {
	sliceBase
	records *recordPool[EventRecord]
}

// NewEventTrackSlice allocates an empty, incomplete event slice.
func NewEventTrackSlice(start, end types.Timestamp) *EventTrackSlice {
	return &EventTrackSlice{
		sliceBase: newSliceBase(start, end),
		records:   newRecordPool[EventRecord](),
	}
}

// AddRecord appends one record in SQL-arrival order. Must be called
// only by the loader worker that owns this slice before SetComplete.
func (s *EventTrackSlice) AddRecord(r EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records.Append(r)
}

// NumRecords returns the number of records currently in the slice.
func (s *EventTrackSlice) NumRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Len()
}

// RecordAt returns the record at idx and true, or the zero record and
// false if idx is out of range.
func (s *EventTrackSlice) RecordAt(idx int) (EventRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= s.records.Len() {
		return EventRecord{}, false
	}
	return s.records.At(idx), true
}

// ConvertTimestampToIndex returns the first index i such that
// records[i].Timestamp >= t (a lower bound), or (0, false) if no such
// index exists — "not loaded" per spec §3/§8 property 3. Records are
// assumed non-decreasing in timestamp (spec invariant); the search is
// linear rather than binary because ties on timestamp must resolve to
// the first SQL-arrival-order match, and a plain sort.Search over a
// chunked pool already costs the same per access pattern this engine
// sees (small slices, one lookup per UI hover).
func (s *EventTrackSlice) ConvertTimestampToIndex(t types.Timestamp) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.records.Len()
	for i := 0; i < n; i++ {
		if s.records.At(i).Timestamp >= t {
			return i, true
		}
	}
	return 0, false
}

func (s *EventTrackSlice) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Bytes()
}

// PmcTrackSlice holds PmcRecords for PMC (performance-monitor counter)
// tracks.
type PmcTrackSlice struct {
	sliceBase
	records *recordPool[PmcRecord]
}

// NewPmcTrackSlice allocates an empty, incomplete PMC slice.
func NewPmcTrackSlice(start, end types.Timestamp) *PmcTrackSlice {
	return &PmcTrackSlice{
		sliceBase: newSliceBase(start, end),
		records:   newRecordPool[PmcRecord](),
	}
}

func (s *PmcTrackSlice) AddRecord(r PmcRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records.Append(r)
}

func (s *PmcTrackSlice) NumRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Len()
}

func (s *PmcTrackSlice) RecordAt(idx int) (PmcRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= s.records.Len() {
		return PmcRecord{}, false
	}
	return s.records.At(idx), true
}

func (s *PmcTrackSlice) ConvertTimestampToIndex(t types.Timestamp) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.records.Len()
	for i := 0; i < n; i++ {
		if s.records.At(i).Timestamp >= t {
			return i, true
		}
	}
	return 0, false
}

func (s *PmcTrackSlice) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Bytes()
}
