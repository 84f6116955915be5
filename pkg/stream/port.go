// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package stream defines the streaming side of the bridge: element type descriptors (DType),
// buffers of elements (BufferChunk), in-band Labels, input and output ports, and the buffer managers
// that size output slabs.
//
// Nodes only use the InputPort and OutputPort interfaces. Input and Output are the in-memory
// implementations used by the flow runner (package github.com/gomlx/flowarray/pkg/flow).
package stream

// InputPort is the node's view of one of its inputs.
type InputPort interface {
	// Name of the port, e.g. "0".
	Name() string

	// Index of the port in the node's indexed inputs, or -1 for named ports.
	Index() int

	// DType of the elements.
	DType() DType

	// Elements returns the number of elements available.
	Elements() int

	// Buffer returns the available elements. It's a borrow: the values must not be changed, and they
	// are only valid until the next Consume.
	Buffer() BufferChunk

	// TakeBuffer returns the available elements, transferring the ownership of their storage to the caller.
	// The caller must still Consume the elements it took.
	TakeBuffer() BufferChunk

	// Consume marks the first n available elements as processed.
	Consume(n int)

	// Labels returns the labels attached to the available elements, ordered by Index.
	Labels() []Label
}

// OutputPort is the node's view of one of its outputs.
type OutputPort interface {
	// Name of the port, e.g. "0".
	Name() string

	// Index of the port in the node's indexed outputs, or -1 for named ports.
	Index() int

	// DType of the elements.
	DType() DType

	// Domain of the buffers produced by the port.
	Domain() string

	// Elements returns the number of elements of free space in the current output slab.
	Elements() int

	// Buffer returns the free space of the current output slab, to be filled by the node and then
	// emitted with Produce.
	Buffer() BufferChunk

	// Produce emits the first n elements of Buffer downstream.
	Produce(n int)

	// PostBuffer emits chunk downstream, transferring its ownership.
	PostBuffer(chunk BufferChunk)

	// PostLabel attaches label to the element at label.Index, counted from the next element emitted.
	PostLabel(label Label)
}

// WorkInfo summarizes the ports of a node at the start of an invocation.
type WorkInfo struct {
	// MinInElements is the minimum number of elements available across the indexed input ports.
	MinInElements int

	// MinOutElements is the minimum free space across the indexed output ports.
	MinOutElements int

	// MinElements is the minimum of MinInElements and MinOutElements, over the ports that exist.
	MinElements int
}

// NewWorkInfo computes the WorkInfo for the given ports.
func NewWorkInfo(inputs []InputPort, outputs []OutputPort) WorkInfo {
	var info WorkInfo
	first := true
	for _, in := range inputs {
		n := in.Elements()
		if first || n < info.MinInElements {
			info.MinInElements = n
		}
		first = false
	}
	first = true
	for _, out := range outputs {
		n := out.Elements()
		if first || n < info.MinOutElements {
			info.MinOutElements = n
		}
		first = false
	}
	switch {
	case len(inputs) > 0 && len(outputs) > 0:
		info.MinElements = min(info.MinInElements, info.MinOutElements)
	case len(inputs) > 0:
		info.MinElements = info.MinInElements
	default:
		info.MinElements = info.MinOutElements
	}
	return info
}
