// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package flow

import (
	"slices"
	"sync"

	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/stream"
)

// Collector is a sink node that accumulates every element and label it receives.
type Collector struct {
	*block.Block

	mu     sync.Mutex
	data   stream.BufferChunk
	labels []stream.Label
}

// NewCollector creates a Collector of elements of dtype.
func NewCollector(ctx *device.Context, dtype stream.DType) *Collector {
	n := &Collector{Block: block.New(ctx, "collector"), data: stream.NewBufferChunk(dtype, 0)}
	n.SetupInput(dtype)
	return n
}

// Work moves the available input elements to the collected buffer.
func (n *Collector) Work() error {
	return n.Invoke(n.work)
}

func (n *Collector) work() error {
	in := n.Input(0)
	elems := in.Elements()
	if elems == 0 {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	offset := n.data.Elements()
	for _, label := range in.Labels() {
		label.Index += offset
		n.labels = append(n.labels, label)
	}
	var err error
	n.data, err = n.data.Append(in.Buffer())
	if err != nil {
		return err
	}
	in.Consume(elems)
	return nil
}

// Buffer returns the elements collected so far.
func (n *Collector) Buffer() stream.BufferChunk {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.data
}

// Elements returns the number of elements collected so far.
func (n *Collector) Elements() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.data.Elements()
}

// Labels returns the labels collected so far, with indices relative to the start of Buffer.
func (n *Collector) Labels() []stream.Label {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.labels)
}

// Reset drops the collected elements and labels.
func (n *Collector) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data = stream.NewBufferChunk(n.data.DType(), 0)
	n.labels = nil
}
