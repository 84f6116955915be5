// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool implements a bounded pool of goroutines used by kernels to process the rows
// (channels) of a batched array in parallel.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool limits the number of goroutines running kernel work.
type Pool struct {
	// maxParallelism is the limit of tasks running in parallel.
	// 0 disables parallelism, and a negative value means unlimited.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Signaled whenever numRunning is decreased.
	numRunning     int
}

// New returns a new Pool of workers with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	return NewWithParallelism(runtime.NumCPU())
}

// NewWithParallelism returns a new Pool that runs at most maxParallelism tasks at a time.
// See SetMaxParallelism for the meaning of 0 and negative values.
func NewWithParallelism(maxParallelism int) *Pool {
	w := &Pool{maxParallelism: maxParallelism}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0)
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// MaxParallelism is the limit of tasks running in parallel.
// If set to 0 parallelism is disabled.
// If set to -1 parallelism is unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// SetMaxParallelism sets the maxParallelism.
//
// You should only change the parallelism before any workers start running. If changed during the execution
// the behavior is undefined.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.maxParallelism = maxParallelism
}

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism == 0 {
		return true
	} else if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= w.maxParallelism
}

// lockedRunTaskInGoroutine and keep tabs on w.numRunning.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedRunTaskInGoroutine(task func()) {
	w.numRunning++
	go func() {
		defer func() {
			w.mu.Lock()
			w.numRunning--
			w.cond.Signal()
			w.mu.Unlock()
		}()
		task()
	}()
}

// StartIfAvailable runs the task in a separate goroutine, if there are enough workers left.
// It returns true if it found workers to run the function, false otherwise.
//
// It's up to the client to synchronize the end of the function execution.
func (w *Pool) StartIfAvailable(task func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedIsFull() {
		return false
	}
	w.lockedRunTaskInGoroutine(task)
	return true
}

// ForEach calls fn(i) for i in [0, n), and returns when all calls are finished.
//
// Calls run in the pool's goroutines when workers are available, and inline otherwise, so ForEach never
// blocks waiting for a worker and can be called from within a task.
// If any call panics, ForEach re-panics with the first panic value after all calls finish.
func (w *Pool) ForEach(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || !w.IsEnabled() {
		for i := range n {
			fn(i)
		}
		return
	}

	var (
		wg         sync.WaitGroup
		panicOnce  sync.Once
		panicValue any
		panicked   bool
	)
	call := func(i int) {
		defer func() {
			if r := recover(); r != nil {
				panicOnce.Do(func() {
					panicValue = r
					panicked = true
				})
			}
		}()
		fn(i)
	}
	for i := range n {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			call(i)
		}
		if !w.StartIfAvailable(task) {
			task()
		}
	}
	wg.Wait()
	if panicked {
		panic(panicValue)
	}
}
