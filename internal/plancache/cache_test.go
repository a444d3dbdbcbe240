package plancache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetMissesOnEmpty(t *testing.T) {
	var c Cache
	_, ok := c.Get("sig")
	assert.False(t, ok)
}

func TestCache_PutThenGet(t *testing.T) {
	var c Cache
	in := Entry{CommandText: "SELECT 1", ParamNames: []string{"minPrice"}}
	c.Put("sig", in)

	out, ok := c.Get("sig")
	require.True(t, ok)
	assert.Equal(t, in, out)
	assert.Equal(t, 1, c.Len())
}

func TestCache_FirstWriterWins(t *testing.T) {
	var c Cache
	first := c.Put("sig", Entry{CommandText: "first"})
	second := c.Put("sig", Entry{CommandText: "second"})

	assert.Equal(t, "first", first.CommandText)
	assert.Equal(t, "first", second.CommandText)
	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentPutsConverge(t *testing.T) {
	var c Cache
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Put("sig", Entry{CommandText: "SELECT 1"})
		}()
	}
	wg.Wait()

	out, ok := c.Get("sig")
	require.True(t, ok)
	assert.Equal(t, "SELECT 1", out.CommandText)
	assert.Equal(t, 1, c.Len())
}
