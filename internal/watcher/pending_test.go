package watcher

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingSet_Basics(t *testing.T) {
	p := NewPendingSet()

	assert.False(t, p.Contains("a.csv"))
	assert.Equal(t, 0, p.Len())

	p.Add("a.csv")
	assert.True(t, p.Contains("a.csv"))
	assert.Equal(t, 1, p.Len())

	// Re-adding a present name is a no-op.
	p.Add("a.csv")
	assert.Equal(t, 1, p.Len())

	p.Remove("a.csv")
	assert.False(t, p.Contains("a.csv"))

	// Removing an absent name must not panic.
	p.Remove("missing.csv")
}

func TestPendingSet_Clear(t *testing.T) {
	p := NewPendingSet()
	p.Add("a")
	p.Add("b")
	p.Add("c")

	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.False(t, p.Contains("a"))
}

func TestPendingSet_ConcurrentAccess(t *testing.T) {
	p := NewPendingSet()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("file-%d", n)
			for j := 0; j < 100; j++ {
				p.Add(name)
				p.Contains(name)
				p.Remove(name)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, p.Len())
}
