package datamodel

import (
	"sync"

	"github.com/rocprofvis/datamodel/pkg/types"
)

// StackFrame is one frame of a resolved call stack, ordered leaf
// (index 0) to root.
type StackFrame struct {
	SymbolID uint32
	Name     string
}

// StackTraceTable is the Trace-owned side-table mapping an EventId to
// its resolved call stack (spec §3's call-stack side-table). Like
// FlowTraceTable, it is populated lazily as PropStackTrace requests
// resolve rather than eagerly for every event.
type StackTraceTable struct {
	mu    sync.RWMutex
	byKey map[types.EventId][]StackFrame
}

// NewStackTraceTable constructs an empty table.
func NewStackTraceTable() *StackTraceTable {
	return &StackTraceTable{byKey: make(map[types.EventId][]StackFrame)}
}

// SetStack records the resolved frames for id, overwriting any prior
// entry.
func (s *StackTraceTable) SetStack(id types.EventId, frames []StackFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]StackFrame, len(frames))
	copy(cp, frames)
	s.byKey[id] = cp
}

// Stack returns the resolved frames for id, if any.
func (s *StackTraceTable) Stack(id types.EventId) ([]StackFrame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	frames, ok := s.byKey[id]
	if !ok {
		return nil, false
	}
	out := make([]StackFrame, len(frames))
	copy(out, frames)
	return out, true
}

// Exists reports whether a stack has been resolved for id.
func (s *StackTraceTable) Exists(id types.EventId) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[id]
	return ok
}

// Delete removes the resolved stack recorded for id.
func (s *StackTraceTable) Delete(id types.EventId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKey, id)
}

// Clear removes every resolved stack.
func (s *StackTraceTable) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey = make(map[types.EventId][]StackFrame)
}

// Bytes estimates the table's footprint.
func (s *StackTraceTable) Bytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := int64(0)
	for _, frames := range s.byKey {
		for _, f := range frames {
			total += int64(len(f.Name)) + 16
		}
	}
	return total
}
