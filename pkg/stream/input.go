// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stream

import (
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Input is an in-memory InputPort: a queue of elements and their labels.
//
// Push may be called concurrently with the node reading the port.
type Input struct {
	name  string
	index int
	dtype DType

	mu       sync.Mutex
	data     BufferChunk
	labels   []Label
	consumed int64
}

var _ InputPort = (*Input)(nil)

// NewInput creates an empty input port.
func NewInput(name string, index int, dtype DType) *Input {
	return &Input{name: name, index: index, dtype: dtype}
}

// Name implements InputPort.
func (in *Input) Name() string { return in.name }

// Index implements InputPort.
func (in *Input) Index() int { return in.index }

// DType implements InputPort.
func (in *Input) DType() DType { return in.dtype }

// Push appends chunk to the queue, taking ownership of its storage. The labels indices are relative to the
// start of chunk.
func (in *Input) Push(chunk BufferChunk, labels ...Label) error {
	if !chunk.IsNil() && chunk.DType() != in.dtype {
		return errors.Errorf("cannot push %s elements into input port %q of type %s", chunk.DType(), in.name, in.dtype)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	offset := in.data.Elements()
	if offset == 0 {
		// Adopt the chunk storage.
		in.data = chunk.Slice(0, chunk.Elements())
	} else {
		var err error
		in.data, err = in.data.Append(chunk)
		if err != nil {
			return err
		}
	}
	for _, label := range labels {
		label.Index += offset
		in.labels = append(in.labels, label)
	}
	slices.SortStableFunc(in.labels, func(a, b Label) int { return a.Index - b.Index })
	return nil
}

// Elements implements InputPort.
func (in *Input) Elements() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.data.Elements()
}

// Buffer implements InputPort.
func (in *Input) Buffer() BufferChunk {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.data.IsNil() {
		return BufferChunk{dtype: in.dtype}
	}
	return in.data.Slice(0, in.data.Elements())
}

// TakeBuffer implements InputPort.
// The port never writes to the storage of elements it has handed out, so the caller may reuse it
// after consuming the elements.
func (in *Input) TakeBuffer() BufferChunk {
	return in.Buffer()
}

// Consume implements InputPort. It panics if n is larger than the number of elements available.
func (in *Input) Consume(n int) {
	if n == 0 {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	available := in.data.Elements()
	if n < 0 || n > available {
		exceptions.Panicf("input port %q: cannot consume %d elements, only %d available", in.name, n, available)
	}
	in.data = in.data.Slice(n, available)
	in.consumed += int64(n)
	kept := in.labels[:0]
	for _, label := range in.labels {
		if label.Index < n {
			continue
		}
		label.Index -= n
		kept = append(kept, label)
	}
	in.labels = kept
}

// Labels implements InputPort.
func (in *Input) Labels() []Label {
	in.mu.Lock()
	defer in.mu.Unlock()
	return slices.Clone(in.labels)
}

// TotalConsumed returns the number of elements consumed since the port was created.
func (in *Input) TotalConsumed() int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.consumed
}
