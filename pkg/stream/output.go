// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stream

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Output is an in-memory OutputPort. Emitted elements are pushed immediately to the subscribed inputs.
//
// With more than one subscriber, the first one receives the emitted storage and the others a copy.
type Output struct {
	name   string
	index  int
	dtype  DType
	domain string

	mu            sync.Mutex
	manager       *BufferManager
	slab          BufferChunk
	pendingLabels []Label
	subscribers   []*Input
	produced      int64
}

var _ OutputPort = (*Output)(nil)

// NewOutput creates an output port. It uses a buffer manager with DefaultBufferManagerArgs until
// SetBufferManager is called.
func NewOutput(name string, index int, dtype DType, domain string) *Output {
	return &Output{name: name, index: index, dtype: dtype, domain: domain}
}

// Name implements OutputPort.
func (out *Output) Name() string { return out.name }

// Index implements OutputPort.
func (out *Output) Index() int { return out.index }

// DType implements OutputPort.
func (out *Output) DType() DType { return out.dtype }

// Domain implements OutputPort.
func (out *Output) Domain() string {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.domain
}

// SetDomain changes the domain tag of the output, e.g. after its node moved to another device.
func (out *Output) SetDomain(domain string) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.domain = domain
}

// SetBufferManager sets the manager of the output slabs. The current slab, if any, is dropped.
func (out *Output) SetBufferManager(manager *BufferManager) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.manager = manager
	out.slab = BufferChunk{}
}

// BufferManager returns the manager of the output slabs.
func (out *Output) BufferManager() *BufferManager {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.lockedEnsureManager()
	return out.manager
}

func (out *Output) lockedEnsureManager() {
	if out.manager == nil {
		out.manager, _ = NewBufferManager(DefaultBufferManagerArgs())
	}
}

// lockedEnsureSlab makes sure there is free space in the current slab.
func (out *Output) lockedEnsureSlab() {
	if out.slab.Elements() > 0 {
		return
	}
	out.lockedEnsureManager()
	out.slab = out.manager.Slab(out.dtype)
}

// Subscribe connects in to receive the elements emitted by the output.
func (out *Output) Subscribe(in *Input) error {
	if in.DType() != out.dtype {
		return errors.Errorf("cannot connect output port %q (%s) to input port %q (%s)",
			out.name, out.dtype, in.Name(), in.DType())
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	out.subscribers = append(out.subscribers, in)
	return nil
}

// Elements implements OutputPort.
func (out *Output) Elements() int {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.lockedEnsureSlab()
	return out.slab.Elements()
}

// Buffer implements OutputPort.
func (out *Output) Buffer() BufferChunk {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.lockedEnsureSlab()
	return out.slab
}

// Produce implements OutputPort. It panics if n is larger than the free space in the slab.
func (out *Output) Produce(n int) {
	if n == 0 {
		return
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	free := out.slab.Elements()
	if n < 0 || n > free {
		panic(errors.Errorf("output port %q: cannot produce %d elements, the slab only has %d", out.name, n, free))
	}
	chunk := out.slab.Slice(0, n)
	out.slab = out.slab.Slice(n, free)
	out.lockedDeliver(chunk)
}

// PostBuffer implements OutputPort.
func (out *Output) PostBuffer(chunk BufferChunk) {
	if chunk.Elements() == 0 {
		return
	}
	if chunk.DType() != out.dtype {
		panic(errors.Errorf("output port %q (%s): cannot post a %s buffer", out.name, out.dtype, chunk.DType()))
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	out.lockedDeliver(chunk)
}

// PostLabel implements OutputPort.
func (out *Output) PostLabel(label Label) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.pendingLabels = append(out.pendingLabels, label)
}

// lockedDeliver pushes chunk, and the pending labels that fall within it, to the subscribers.
func (out *Output) lockedDeliver(chunk BufferChunk) {
	n := chunk.Elements()
	var labels []Label
	kept := out.pendingLabels[:0]
	for _, label := range out.pendingLabels {
		if label.Index < n {
			labels = append(labels, label)
		} else {
			label.Index -= n
			kept = append(kept, label)
		}
	}
	out.pendingLabels = kept
	out.produced += int64(n)
	for ii, in := range out.subscribers {
		c := chunk
		if ii > 0 {
			c = chunk.Clone()
		}
		if err := in.Push(c, labels...); err != nil {
			klog.Errorf("output port %q: failed to push to input %q: %+v", out.name, in.Name(), err)
		}
	}
}

// TotalProduced returns the number of elements emitted since the port was created.
func (out *Output) TotalProduced() int64 {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.produced
}
