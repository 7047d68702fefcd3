package datamodel

import (
	"sync"

	"github.com/rocprofvis/datamodel/pkg/types"
)

// FlowLink is one edge of a flow graph: a directed relationship
// between two events, e.g. a CPU dispatch and the GPU kernel it
// launched (spec §3's flow-graph side-table).
type FlowLink struct {
	From types.EventId
	To   types.EventId
	Name string
}

// FlowTraceTable is the Trace-owned side-table mapping an EventId to
// the flow links where it is the From endpoint; links are not indexed
// under their To endpoint.
// Populated incrementally by the loader as ReadEventProperty requests
// for PropFlowTrace resolve.
type FlowTraceTable struct {
	mu    sync.RWMutex
	byKey map[types.EventId][]FlowLink
}

// NewFlowTraceTable constructs an empty table.
func NewFlowTraceTable() *FlowTraceTable {
	return &FlowTraceTable{byKey: make(map[types.EventId][]FlowLink)}
}

// AddLink records a flow edge. Safe to call repeatedly for the same
// (From, To) pair; duplicates are not collapsed here since a single
// event may legitimately fan out over multiple identically-named
// links to different targets.
func (f *FlowTraceTable) AddLink(link FlowLink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey[link.From] = append(f.byKey[link.From], link)
}

// Links returns the flow links where id participates as From.
func (f *FlowTraceTable) Links(id types.EventId) ([]FlowLink, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	links, ok := f.byKey[id]
	if !ok {
		return nil, false
	}
	out := make([]FlowLink, len(links))
	copy(out, links)
	return out, true
}

// Exists reports whether any flow links are recorded for id, matching
// the loader's CheckEventPropertyExists dedup check (spec §4.4 E3).
func (f *FlowTraceTable) Exists(id types.EventId) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.byKey[id]
	return ok
}

// Delete removes any flow links recorded for id.
func (f *FlowTraceTable) Delete(id types.EventId) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byKey, id)
}

// Clear removes every recorded flow link.
func (f *FlowTraceTable) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey = make(map[types.EventId][]FlowLink)
}

// Bytes estimates the table's footprint.
func (f *FlowTraceTable) Bytes() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	total := int64(0)
	for _, links := range f.byKey {
		total += int64(len(links)) * 40
	}
	return total
}
