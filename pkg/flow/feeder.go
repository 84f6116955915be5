// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package flow

import (
	"github.com/gomlx/flowarray/pkg/adapter"
	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/stream"
)

// Feeder is a source node that emits the chunks and labels fed to it.
type Feeder struct {
	*block.Block
	queue *stream.Input
}

// NewFeeder creates a Feeder of elements of dtype.
func NewFeeder(ctx *device.Context, dtype stream.DType) *Feeder {
	n := &Feeder{Block: block.New(ctx, "feeder"), queue: stream.NewInput("queue", -1, dtype)}
	n.SetupOutput(dtype)
	return n
}

// Feed queues chunk to be emitted by the next invocation, with labels relative to the start of chunk.
// The Feeder takes ownership of the chunk storage.
func (n *Feeder) Feed(chunk stream.BufferChunk, labels ...stream.Label) error {
	return n.queue.Push(chunk, labels...)
}

// Pending returns the number of elements fed but not emitted yet.
func (n *Feeder) Pending() int {
	return n.queue.Elements()
}

// Work emits everything queued.
func (n *Feeder) Work() error {
	return n.Invoke(n.work)
}

func (n *Feeder) work() error {
	elems := n.queue.Elements()
	if elems == 0 {
		return adapter.ErrEmptyInput
	}
	out := n.Output(0)
	for _, label := range n.queue.Labels() {
		out.PostLabel(label)
	}
	out.PostBuffer(n.queue.TakeBuffer())
	n.queue.Consume(elems)
	return nil
}
