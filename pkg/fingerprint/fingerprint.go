// Package fingerprint computes the deterministic, hash-derived ids
// the loader uses to dedup in-flight and completed requests (spec
// §4.9, testable properties 5-6). It is adapted from the teacher's
// pkg/deduplication content-hash cache: that package hashed whole log
// entries with xxhash to suppress re-delivery, keyed by a string built
// from the entry's fields; here the same xxhash.Sum64 primitive keys
// three narrower, purpose-built fingerprints instead of a general LRU
// cache, because the model already owns the "have we seen this
// before" answer (a Track's slice list, a Trace's table map) — there
// is nothing left for a separate cache layer to do.
package fingerprint

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// Slice returns the fingerprint of a half-open [start, end) time
// window. Two requests for the same window always produce the same
// key. The TrackId is not part of the key: identical windows on
// different tracks share a key and stay apart only because each Track
// scans its own slice list (see
// internal/datamodel.Track.GetSliceAtTime).
func Slice(start, end types.Timestamp) uint64 {
	var buf [16]byte
	putUint64(buf[0:8], uint64(start))
	putUint64(buf[8:16], uint64(end))
	return xxhash.Sum64(buf[:])
}

// Table returns the fingerprint of a SQL query's text, used both to
// dedup ExecuteQueryAsync calls and as the Table's externally visible
// id (spec §4.3.4, §8 property 6).
func Table(sql string) types.TableId {
	return types.TableId(xxhash.Sum64String(sql))
}

// EventProperty is the dedup key for a (type, event id) pair (spec
// §4.3.3). FuncCheckEventPropertyExists does not go through this key.
type EventProperty struct {
	Type    types.EventPropertyType
	EventID types.EventId
}

// Key renders the EventProperty pair as a single comparable string,
// convenient as a map key without requiring a [2]uint64 literal at
// every call site.
func (p EventProperty) Key() string {
	return strconv.Itoa(int(p.Type)) + ":" + strconv.FormatUint(uint64(p.EventID), 16)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * (7 - i)))
	}
}
