package datamodel

// MemPoolChunk is the number of record slots per allocated chunk
// (spec §5's MEM_POOL_CHUNK). It bounds the cost of each insert to an
// amortized append and, because chunks are never partially freed,
// gives every record a stable address for the lifetime of its slice.
const MemPoolChunk = 1024

// recordPool is a bump allocator over fixed-size chunks of T,
// adapted from the teacher's pkg/buffer.DiskBuffer file-rotation
// scheme: that buffer rolled over to a new file once the current one
// hit a size ceiling and never rewrote a closed file in place. The
// same shape — append within the current chunk, roll to a new one
// once full, never mutate a previous chunk — is reused here, only
// in memory rather than on disk, since a TrackSlice's records are
// append-only for the lifetime of the load (spec §3, §5).
type recordPool[T any] struct {
	chunks [][]T
	count  int
}

func newRecordPool[T any]() *recordPool[T] {
	return &recordPool[T]{}
}

// Append adds v to the pool and returns its stable index.
func (p *recordPool[T]) Append(v T) int {
	chunkIdx := p.count / MemPoolChunk
	for chunkIdx >= len(p.chunks) {
		p.chunks = append(p.chunks, make([]T, 0, MemPoolChunk))
	}
	p.chunks[chunkIdx] = append(p.chunks[chunkIdx], v)
	idx := p.count
	p.count++
	return idx
}

// Len returns the number of records appended so far.
func (p *recordPool[T]) Len() int { return p.count }

// At returns the record at idx. Panics if idx is out of range, like a
// slice index would — callers are expected to bounds-check against
// Len() first (the handle layer does, returning InvalidProperty/
// InvalidParameter instead of panicking).
func (p *recordPool[T]) At(idx int) T {
	return p.chunks[idx/MemPoolChunk][idx%MemPoolChunk]
}

// ForEach visits every record in insertion order.
func (p *recordPool[T]) ForEach(fn func(idx int, v T)) {
	idx := 0
	for _, chunk := range p.chunks {
		for _, v := range chunk {
			fn(idx, v)
			idx++
		}
	}
}

// Bytes estimates the pool's heap footprint for
// Trace.GetMemoryFootprint (spec §4.4).
func (p *recordPool[T]) Bytes() int64 {
	var zero T
	return int64(len(p.chunks)) * int64(MemPoolChunk) * int64(sizeOf(zero))
}

func sizeOf[T any](v T) int {
	// Deliberately approximate: a constant-size estimate per record
	// kind is enough for the monotonicity property the spec tests
	// (§8 property 8), and avoids pulling in unsafe.Sizeof semantics
	// that don't account for non-pointer fields exactly anyway.
	switch any(v).(type) {
	case EventRecord:
		return 24
	case PmcRecord:
		return 16
	default:
		return 32
	}
}
