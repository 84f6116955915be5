// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_StartIfAvailable(t *testing.T) {
	pool := NewWithParallelism(2)
	release := make(chan struct{})
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		require.True(t, pool.StartIfAvailable(func() {
			defer wg.Done()
			<-release
		}))
	}
	assert.False(t, pool.StartIfAvailable(func() {}), "pool should be full")
	close(release)
	wg.Wait()

	// Wait for the workers to be released.
	deadline := time.Now().Add(time.Second)
	for !pool.StartIfAvailable(func() {}) {
		if time.Now().After(deadline) {
			t.Fatal("Timeout waiting for workers to be released.")
		}
		time.Sleep(time.Millisecond)
	}

	// Disabled pool never starts goroutines.
	pool.SetMaxParallelism(0)
	assert.False(t, pool.IsEnabled())
	assert.False(t, pool.StartIfAvailable(func() {}))
}

func TestPool_ForEach(t *testing.T) {
	for _, parallelism := range []int{0, 1, 3, -1} {
		pool := NewWithParallelism(parallelism)
		const n = 100
		var seen [n]atomic.Int32
		var count atomic.Int32
		pool.ForEach(n, func(i int) {
			seen[i].Add(1)
			count.Add(1)
		})
		assert.Equal(t, int32(n), count.Load(), "parallelism=%d", parallelism)
		for i := range n {
			require.Equal(t, int32(1), seen[i].Load(), "parallelism=%d, i=%d", parallelism, i)
		}
	}
}

func TestPool_ForEachPanic(t *testing.T) {
	pool := NewWithParallelism(4)
	var count atomic.Int32
	require.PanicsWithValue(t, "row 3", func() {
		pool.ForEach(8, func(i int) {
			count.Add(1)
			if i == 3 {
				panic("row 3")
			}
		})
	})
	assert.Equal(t, int32(8), count.Load())
}
