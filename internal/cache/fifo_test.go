package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO_EvictsOldestKey(t *testing.T) {
	c := NewFIFO[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Set("d", 4)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c", "d"}, c.Keys())
	assert.Equal(t, 3, c.Len())

	v, ok := c.Get("d")
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestFIFO_UpdateKeepsPosition(t *testing.T) {
	c := NewFIFO[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	// a was inserted first, so it goes first even though it was updated last
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c"}, c.Keys())
}

func TestFIFO_ClampsLimit(t *testing.T) {
	c := NewFIFO[int, string](0)
	c.Set(1, "one")
	c.Set(2, "two")
	assert.Equal(t, []int{2}, c.Keys())
}

func TestFIFO_ConcurrentSet(t *testing.T) {
	c := NewFIFO[string, int](50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Set(fmt.Sprintf("%d-%d", w, i), i)
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}
