package datamodel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocprofvis/datamodel/pkg/types"
)

func TestEventTrackSliceConvertTimestampToIndexLowerBound(t *testing.T) {
	s := NewEventTrackSlice(0, 1000)
	s.AddRecord(EventRecord{Timestamp: 10})
	s.AddRecord(EventRecord{Timestamp: 20})
	s.AddRecord(EventRecord{Timestamp: 20})
	s.AddRecord(EventRecord{Timestamp: 30})

	idx, ok := s.ConvertTimestampToIndex(20)
	require.True(t, ok)
	assert.Equal(t, 1, idx, "must resolve to the first SQL-arrival-order match on a tie")

	idx, ok = s.ConvertTimestampToIndex(25)
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = s.ConvertTimestampToIndex(1000)
	assert.False(t, ok, "no record reaches the query timestamp")
}

func TestSliceKeyIsFingerprintOfWindow(t *testing.T) {
	s1 := NewEventTrackSlice(0, 100)
	s2 := NewEventTrackSlice(0, 100)
	s3 := NewEventTrackSlice(0, 101)

	assert.Equal(t, s1.Key(), s2.Key())
	assert.NotEqual(t, s1.Key(), s3.Key())
}

func TestSliceCompletionLatchUnblocksWaiters(t *testing.T) {
	s := NewEventTrackSlice(0, 100)
	assert.False(t, s.IsComplete())

	var wg sync.WaitGroup
	wg.Add(1)
	woke := make(chan struct{})
	go func() {
		defer wg.Done()
		s.WaitComplete()
		close(woke)
	}()

	select {
	case <-woke:
		t.Fatal("WaitComplete returned before SetComplete was called")
	case <-time.After(30 * time.Millisecond):
	}

	s.SetComplete()
	wg.Wait()
	assert.True(t, s.IsComplete())
}

func TestSetCompleteIsIdempotent(t *testing.T) {
	s := NewEventTrackSlice(0, 100)
	s.SetComplete()
	assert.NotPanics(t, func() { s.SetComplete() })
	assert.True(t, s.IsComplete())
}

func TestPmcTrackSliceRecordOrderPreserved(t *testing.T) {
	s := NewPmcTrackSlice(0, 100)
	s.AddRecord(PmcRecord{Timestamp: 5, Value: 1.5})
	s.AddRecord(PmcRecord{Timestamp: 15, Value: 2.5})

	r0, ok := s.RecordAt(0)
	require.True(t, ok)
	assert.Equal(t, types.Timestamp(5), r0.Timestamp)
	assert.Equal(t, 1.5, r0.Value)

	_, ok = s.RecordAt(2)
	assert.False(t, ok)
}
