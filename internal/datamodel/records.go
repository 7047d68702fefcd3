package datamodel

import "github.com/rocprofvis/datamodel/pkg/types"

// EventRecord is one row of an EventTrackSlice: a CPU region, kernel
// dispatch, memory copy, or memory allocate observation (spec §3).
type EventRecord struct {
	EventID    types.EventId
	Timestamp  types.Timestamp
	Duration   int64 // may be negative; the loader may later invalidate it
	CategoryID uint32
	SymbolID   uint32
}

// PmcRecord is one row of a PmcTrackSlice: a single timestamped
// counter sample.
type PmcRecord struct {
	Timestamp types.Timestamp
	Value     float64
}
