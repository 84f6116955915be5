// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stream

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// DefaultBufferSize is the slab size in bytes used by output ports of nodes that don't declare one.
const DefaultBufferSize = 8 * 1024

// BufferManagerArgs configures a BufferManager.
type BufferManagerArgs struct {
	// BufferSize is the size in bytes of each slab.
	BufferSize int
}

// DefaultBufferManagerArgs returns the arguments of the default buffer manager.
func DefaultBufferManagerArgs() BufferManagerArgs {
	return BufferManagerArgs{BufferSize: DefaultBufferSize}
}

// BufferManager allocates the slabs output ports write into.
//
// Slabs are handed downstream with the elements produced in them, so they are never reused.
type BufferManager struct {
	args      BufferManagerArgs
	allocated atomic.Int64
}

// NewBufferManager returns a manager allocating slabs of args.BufferSize bytes.
func NewBufferManager(args BufferManagerArgs) (*BufferManager, error) {
	if args.BufferSize <= 0 {
		return nil, errors.Errorf("invalid buffer size %d for BufferManager", args.BufferSize)
	}
	return &BufferManager{args: args}, nil
}

// Args returns the arguments the manager was created with.
func (m *BufferManager) Args() BufferManagerArgs { return m.args }

// BufferSize returns the size in bytes of each slab.
func (m *BufferManager) BufferSize() int { return m.args.BufferSize }

// Slab allocates a new slab for elements of dtype.
// It holds BufferSize/dtype.Size() elements, and at least one.
func (m *BufferManager) Slab(dtype DType) BufferChunk {
	m.allocated.Add(1)
	return NewBufferChunk(dtype, max(1, m.args.BufferSize/dtype.Size()))
}

// Allocated returns the number of slabs allocated so far.
func (m *BufferManager) Allocated() int64 {
	return m.allocated.Load()
}
