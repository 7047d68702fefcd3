package refcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBeforePutIsMiss(t *testing.T) {
	c := New()
	_, ok := c.Get(Key{Table: "node", RowID: 1, Column: "name", DbFileIdx: 0})
	assert.False(t, ok)
}

func TestPutThenGetHits(t *testing.T) {
	c := New()
	key := Key{Table: "process", RowID: 7, Column: "name", DbFileIdx: 0}
	c.Put(key, "python3")

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "python3", v)
}

func TestDbFileIdxScopesKeys(t *testing.T) {
	c := New()
	c.Put(Key{Table: "node", RowID: 1, Column: "name", DbFileIdx: 0}, "gpu-0")
	c.Put(Key{Table: "node", RowID: 1, Column: "name", DbFileIdx: 1}, "gpu-1")

	v0, _ := c.Get(Key{Table: "node", RowID: 1, Column: "name", DbFileIdx: 0})
	v1, _ := c.Get(Key{Table: "node", RowID: 1, Column: "name", DbFileIdx: 1})
	assert.Equal(t, "gpu-0", v0)
	assert.Equal(t, "gpu-1", v1)
}

func TestPutBatchAndLen(t *testing.T) {
	c := New()
	c.PutBatch(map[Key]string{
		{Table: "thread", RowID: 1, Column: "name", DbFileIdx: 0}: "main",
		{Table: "thread", RowID: 2, Column: "name", DbFileIdx: 0}: "worker-0",
	})
	assert.Equal(t, 2, c.Len())
}

func TestConcurrentPutAndGet(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key{Table: "agent", RowID: int64(i), Column: "name", DbFileIdx: 0}
			c.Put(key, "agent")
			c.Get(key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, c.Len())
}
