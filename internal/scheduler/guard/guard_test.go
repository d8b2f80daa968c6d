package guard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardBlocksOverlap(t *testing.T) {
	g := New()

	assert.True(t, g.TryAcquire("sweep"))
	assert.False(t, g.TryAcquire("sweep"))

	// Different names never contend.
	assert.True(t, g.TryAcquire("retry"))

	g.Release("sweep")
	assert.True(t, g.TryAcquire("sweep"))
}

func TestGuardConcurrentAcquire(t *testing.T) {
	g := New()

	var wg sync.WaitGroup
	acquired := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired <- g.TryAcquire("sweep")
		}()
	}
	wg.Wait()
	close(acquired)

	wins := 0
	for ok := range acquired {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}
