package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultOk(t *testing.T) {
	assert.True(t, Success.Ok())
	assert.False(t, DbAccessFailed.Ok())
	assert.False(t, Timeout.Ok())
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "Success", Success.String())
	assert.Equal(t, "DbAccessFailed", DbAccessFailed.String())
	assert.Contains(t, Result(999).String(), "Result(999)")
}

func TestEventIdRoundTrip(t *testing.T) {
	id := NewEventId(12345, OpDispatch)
	assert.Equal(t, uint64(12345), id.Key())
	assert.Equal(t, OpDispatch, id.Op())
}

func TestEventIdKeyTruncation(t *testing.T) {
	// A key wider than 60 bits is truncated; the low 60 bits still round-trip.
	wide := uint64(1) << 61
	id := NewEventId(wide|7, OpLaunch)
	assert.Equal(t, uint64(7), id.Key())
	assert.Equal(t, OpLaunch, id.Op())
}

func TestDbInstanceGuidAssigned(t *testing.T) {
	var zero DbInstance
	require.False(t, zero.GuidAssigned())

	inst := NewDbInstance(2, 9)
	assert.True(t, inst.GuidAssigned())
	assert.Equal(t, uint32(2), inst.FileIndex)
	assert.Equal(t, uint32(9), inst.GuidIndex)
}

func TestTrackCategoryIsPMC(t *testing.T) {
	assert.True(t, TrackPMC.IsPMC())
	assert.False(t, TrackCPURegion.IsPMC())
}
