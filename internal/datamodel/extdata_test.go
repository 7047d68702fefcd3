package datamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rocprofvis/datamodel/pkg/refcache"
	"github.com/rocprofvis/datamodel/pkg/types"
)

func TestExtDataGetUnknownFieldIsNotLoaded(t *testing.T) {
	e := NewExtData()
	_, result := e.Get("gpu_arch")
	assert.Equal(t, types.NotLoaded, result)
}

func TestExtDataGetKnownFieldWithoutCacheIsDbAccessFailed(t *testing.T) {
	e := NewExtData()
	e.AddAttribute(AttributeRecord{Category: "Agent", Name: "gpu_arch", Ref: refcache.Key{Table: "agent", RowID: 1, Column: "arch"}, IsRef: true})
	_, result := e.Get("gpu_arch")
	assert.Equal(t, types.DbAccessFailed, result)
}

func TestExtDataGetResolvesThroughBoundCache(t *testing.T) {
	e := NewExtData()
	cache := refcache.New()
	key := refcache.Key{Table: "agent", RowID: 1, Column: "arch"}
	cache.Put(key, "gfx90a")

	e.Bind(cache)
	e.AddAttribute(AttributeRecord{Category: "Agent", Name: "gpu_arch", Ref: key, IsRef: true})

	value, result := e.Get("gpu_arch")
	assert.Equal(t, types.Success, result)
	assert.Equal(t, "gfx90a", value)
}

func TestExtDataGetPendingCacheMissIsDbAccessFailed(t *testing.T) {
	e := NewExtData()
	cache := refcache.New()
	e.Bind(cache)
	e.AddAttribute(AttributeRecord{Category: "Agent", Name: "gpu_arch", Ref: refcache.Key{Table: "agent", RowID: 99, Column: "arch"}, IsRef: true})

	_, result := e.Get("gpu_arch")
	assert.Equal(t, types.DbAccessFailed, result)
}

func TestExtDataGetResolvesLiteralValue(t *testing.T) {
	e := NewExtData()
	e.AddAttribute(AttributeRecord{Category: "Region", Name: "start", Literal: "100"})
	value, result := e.Get("start")
	assert.Equal(t, types.Success, result)
	assert.Equal(t, "100", value)
}

func TestExtDataAddAttributeDedupsOnCategoryAndName(t *testing.T) {
	e := NewExtData()
	e.AddAttribute(AttributeRecord{Category: "Region", Name: "note", Literal: "first"})
	e.AddAttribute(AttributeRecord{Category: "Region", Name: "note", Literal: "second"})

	assert.Equal(t, 1, e.NumAttributes())
	value, result := e.Get("note")
	assert.Equal(t, types.Success, result)
	assert.Equal(t, "second", value)
}

func TestExtDataAddAttributeArgsCategoryNeverDedups(t *testing.T) {
	e := NewExtData()
	e.AddAttribute(AttributeRecord{Category: argsCategory, Name: "size", Literal: "1024"})
	e.AddAttribute(AttributeRecord{Category: argsCategory, Name: "size", Literal: "2048"})

	assert.Equal(t, 2, e.NumAttributes())
	assert.False(t, e.HasAttribute(argsCategory, "size"))
}

func TestExtDataAddArgumentNeverDedups(t *testing.T) {
	e := NewExtData()
	e.AddArgument(ArgumentRecord{Name: "stream", Value: "0", Position: 0})
	e.AddArgument(ArgumentRecord{Name: "stream", Value: "1", Position: 1})

	assert.Equal(t, 2, e.NumArguments())
	assert.Equal(t, 2, e.NumRecords())

	arg0, ok := e.ArgumentAt(0)
	assert.True(t, ok)
	assert.Equal(t, 0, arg0.Position)

	_, ok = e.ArgumentAt(2)
	assert.False(t, ok)
}

func TestExtDataNumRecordsCountsAttributesAndArguments(t *testing.T) {
	e := NewExtData()
	e.AddAttribute(AttributeRecord{Category: "Region", Name: "a", Literal: "1"})
	e.AddArgument(ArgumentRecord{Name: "b", Value: "2", Position: 0})
	assert.Equal(t, 2, e.NumRecords())
}
