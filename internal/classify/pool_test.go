package classify

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachRespectsConcurrencyCap(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	err := forEach(context.Background(), 3, 0, 10, func(i int) {
		current := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if current > peak {
			peak = current
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int64(3))
}

func TestForEachRunsEverything(t *testing.T) {
	var count int64
	err := forEach(context.Background(), 2, 0, 25, func(i int) {
		atomic.AddInt64(&count, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), count)
}

func TestForEachCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var count int64
	err := forEach(ctx, 1, time.Second, 10, func(i int) {
		atomic.AddInt64(&count, 1)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, count, int64(1))
}
