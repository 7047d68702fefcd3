package datamodel

import (
	"sync"

	"github.com/rocprofvis/datamodel/pkg/refcache"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// argsCategory is the dedup-exempt attribute category (spec §3/§4.6):
// attribute records normally dedup on (category, name), but a kernel
// or API call may legitimately report several distinct records that
// share a name under this category, so AddAttribute never collapses
// them.
const argsCategory = "Args"

// AttributeRecord is one entry of an ExtData's attribute list (spec
// §3: "{category, name, data_or_fk, type, category_enum, db_instance}").
// Its value is either a literal captured at load time or a deferred
// foreign-key lookup resolved through the owning Trace's reference
// cache on first Get (spec §4.6's lazy resolution).
type AttributeRecord struct {
	Category     string
	Name         string
	Type         types.PropertyValueType
	CategoryEnum uint64

	Literal string
	Ref     refcache.Key
	IsRef   bool
}

// ArgumentRecord is one entry of an ExtData's argument list (spec §3:
// "{name, value, type, position}"), e.g. one positional kernel-launch
// argument. Arguments are never deduped: a call's argument list may
// repeat a name at different positions.
type ArgumentRecord struct {
	Name     string
	Value    string
	Type     types.PropertyValueType
	Position int
}

// ExtData is a side-object of lazily-resolved, vendor-specific
// attribute and argument records attached to a track or a single
// event (spec §3's "ext-attrs" side-table, §4.6). A ref-backed
// attribute's value is not copied out of the database eagerly; it
// holds a refcache.Key and resolves through the shared reference
// cache on first access, so a capture with thousands of rarely
// inspected extended attributes doesn't pay to materialize all of
// them upfront.
type ExtData struct {
	mu    sync.RWMutex
	cache *refcache.Cache

	attributes []AttributeRecord
	arguments  []ArgumentRecord
}

// NewExtData constructs an empty ExtData. Bind attaches the shared
// cache once the owning Database is known.
func NewExtData() *ExtData {
	return &ExtData{}
}

// Bind attaches the reference cache used to resolve ref-backed
// attribute values. Called by Trace.EventExtData when it creates an
// event's ExtData; a Track's ExtData is not bound by any caller.
func (e *ExtData) Bind(cache *refcache.Cache) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = cache
}

// AddAttribute records one attribute, replacing any existing record
// sharing (Category, Name) unless Category is the Args token.
func (e *ExtData) AddAttribute(rec AttributeRecord) types.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec.Category != argsCategory {
		for i, existing := range e.attributes {
			if existing.Category == rec.Category && existing.Name == rec.Name {
				e.attributes[i] = rec
				return types.Success
			}
		}
	}
	e.attributes = append(e.attributes, rec)
	return types.Success
}

// HasAttribute reports whether an attribute record already exists for
// (category, name), mirroring the dedup rule AddAttribute applies
// (always false for the Args token, which never dedups).
func (e *ExtData) HasAttribute(category, name string) bool {
	if category == argsCategory {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, existing := range e.attributes {
		if existing.Category == category && existing.Name == name {
			return true
		}
	}
	return false
}

// AddArgument appends a positional argument record.
func (e *ExtData) AddArgument(rec ArgumentRecord) types.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arguments = append(e.arguments, rec)
	return types.Success
}

// NumAttributes reports the number of attribute records.
func (e *ExtData) NumAttributes() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.attributes)
}

// NumArguments reports the number of argument records.
func (e *ExtData) NumArguments() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.arguments)
}

// NumRecords reports the total record count (attributes + arguments),
// the true count the handle layer's ExtDataFieldCountUInt64 reports.
func (e *ExtData) NumRecords() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.attributes) + len(e.arguments)
}

// AttributeAt returns the attribute record at ordinal i.
func (e *ExtData) AttributeAt(i int) (AttributeRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i < 0 || i >= len(e.attributes) {
		return AttributeRecord{}, false
	}
	return e.attributes[i], true
}

// ArgumentAt returns the argument record at ordinal i.
func (e *ExtData) ArgumentAt(i int) (ArgumentRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i < 0 || i >= len(e.arguments) {
		return ArgumentRecord{}, false
	}
	return e.arguments[i], true
}

// Get resolves the first attribute or argument record named name.
// Returns (value, Success), (_, NotLoaded) if no record carries that
// name, or (_, DbAccessFailed) if a ref-backed attribute's key is
// known but the cache has no entry for it yet (the resolving query
// has not completed or failed).
func (e *ExtData) Get(name string) (string, types.Result) {
	e.mu.RLock()
	var rec AttributeRecord
	found := false
	for _, a := range e.attributes {
		if a.Name == name {
			rec = a
			found = true
			break
		}
	}
	if !found {
		for _, arg := range e.arguments {
			if arg.Name == name {
				value := arg.Value
				e.mu.RUnlock()
				return value, types.Success
			}
		}
	}
	cache := e.cache
	e.mu.RUnlock()

	if !found {
		return "", types.NotLoaded
	}
	if !rec.IsRef {
		return rec.Literal, types.Success
	}
	if cache == nil {
		return "", types.DbAccessFailed
	}
	v, ok := cache.Get(rec.Ref)
	if !ok {
		return "", types.DbAccessFailed
	}
	return v, types.Success
}

// Bytes estimates ExtData's footprint: ref-backed attribute values
// live in the shared refcache and are counted there, not per-owner.
func (e *ExtData) Bytes() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := int64(0)
	for _, a := range e.attributes {
		total += int64(len(a.Category)) + int64(len(a.Name)) + int64(len(a.Literal)) + 48
	}
	for _, arg := range e.arguments {
		total += int64(len(arg.Name)) + int64(len(arg.Value)) + 32
	}
	return total
}
