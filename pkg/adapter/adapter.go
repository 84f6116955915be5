// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package adapter converts the elements available in stream input ports into device arrays, and device
// arrays back into elements emitted by output ports.
//
// Single port conversions produce rank-1 arrays (one row). Batched conversions multiplex N ports into a
// rank-2 array with one row per port, truncating every row to the minimum number of elements available,
// so all channels advance in lockstep.
//
// Reads consume the elements they convert. Writes consume the array: its storage is either copied into the
// output slab, or its ownership is handed to the output port.
//
// Stream elements with a Dimension > 1 are laid out as Dimension consecutive columns.
package adapter

import (
	"reflect"

	"github.com/gomlx/flowarray/pkg/core/arrays"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/gomlx/flowarray/pkg/typebridge"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ErrEmptyInput is returned when there are no elements to convert. It's not a failure: the invocation
	// should be skipped and retried when more elements are available.
	ErrEmptyInput = errors.New("empty input")

	// ErrShapeMismatch is returned when an array doesn't have the number of rows expected by the ports.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrTypeMismatch is returned when ports (or ports and arrays) have different element types.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Node is what the adapter needs to know about a processing node.
type Node interface {
	// Context of the node's backend and device.
	Context() *device.Context

	// Inputs returns the indexed input ports.
	Inputs() []stream.InputPort

	// Outputs returns the indexed output ports.
	Outputs() []stream.OutputPort
}

// MinInputElements returns the minimum number of elements available across the given ports.
func MinInputElements(ports []stream.InputPort) int {
	if len(ports) == 0 {
		return 0
	}
	n := ports[0].Elements()
	for _, port := range ports[1:] {
		n = min(n, port.Elements())
	}
	return n
}

// ReadSingle converts the elements available in port into a rank-1 array and consumes them.
//
// If truncate is set, it converts at most the minimum number of elements available across all the
// node's input ports. It returns ErrEmptyInput if there is nothing to convert.
func ReadSingle(node Node, port stream.InputPort, truncate bool) (*arrays.Array, error) {
	n := port.Elements()
	if truncate {
		n = min(n, MinInputElements(node.Inputs()))
	}
	return ReadElements(node.Context(), port, n)
}

// ReadElements converts the first n elements of port into a rank-1 array, and consumes them.
// The values are copied: port storage is not modified.
func ReadElements(ctx *device.Context, port stream.InputPort, n int) (*arrays.Array, error) {
	if n <= 0 {
		return nil, errors.WithStack(ErrEmptyInput)
	}
	if _, err := typebridge.ToDeviceType(port.DType()); err != nil {
		return nil, errors.WithMessagef(err, "input port %q", port.Name())
	}
	chunk := port.Buffer()
	if chunk.Elements() < n {
		return nil, errors.Errorf("input port %q has %d elements, %d requested", port.Name(), chunk.Elements(), n)
	}
	array, err := arrays.FromFlat(ctx, chunk.Slice(0, n).Flat())
	if err != nil {
		return nil, errors.WithMessagef(err, "input port %q", port.Name())
	}
	port.Consume(n)
	klog.V(2).Infof("adapter: read %d elements from port %q into %s", n, port.Name(), array)
	return array, nil
}

// TakeSingle takes ownership of the first n elements of port as a rank-1 array, and consumes them.
// If the backend shares host memory this involves no copy.
func TakeSingle(ctx *device.Context, port stream.InputPort, n int) (*arrays.Array, error) {
	if n <= 0 {
		return nil, errors.WithStack(ErrEmptyInput)
	}
	if _, err := typebridge.ToDeviceType(port.DType()); err != nil {
		return nil, errors.WithMessagef(err, "input port %q", port.Name())
	}
	chunk := port.TakeBuffer()
	if chunk.Elements() < n {
		return nil, errors.Errorf("input port %q has %d elements, %d requested", port.Name(), chunk.Elements(), n)
	}
	array, err := arrays.Wrap(ctx, chunk.Slice(0, n).Flat())
	if err != nil {
		return nil, errors.WithMessagef(err, "input port %q", port.Name())
	}
	port.Consume(n)
	return array, nil
}

// checkSameType returns ErrTypeMismatch if the ports don't all have the same dtype.
func checkSameType(ports []stream.InputPort) error {
	if len(ports) == 0 {
		return errors.New("no ports given")
	}
	dtype := ports[0].DType()
	for _, port := range ports[1:] {
		if port.DType() != dtype {
			return errors.Wrapf(ErrTypeMismatch, "input port %q is %s, input port %q is %s",
				ports[0].Name(), dtype, port.Name(), port.DType())
		}
	}
	return nil
}

// ReadBatched converts the ports into a rank-2 array with one row per port, and as many columns as the
// minimum number of elements available across the ports. It consumes the elements converted.
//
// It returns ErrTypeMismatch if the ports have different dtypes, and ErrEmptyInput if any port is empty.
func ReadBatched(ctx *device.Context, ports []stream.InputPort) (*arrays.Array, error) {
	if err := checkSameType(ports); err != nil {
		return nil, err
	}
	return ReadBatchedN(ctx, ports, MinInputElements(ports))
}

// ReadBatchedN is like ReadBatched, but it converts exactly n elements of each port.
func ReadBatchedN(ctx *device.Context, ports []stream.InputPort, n int) (*arrays.Array, error) {
	if err := checkSameType(ports); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, errors.WithStack(ErrEmptyInput)
	}
	deviceType, err := typebridge.ToDeviceType(ports[0].DType())
	if err != nil {
		return nil, err
	}
	rows := len(ports)
	cols := n * ports[0].DType().ValuesPerElement()
	flat := deviceType.MakeFlat(rows * cols)
	flatV := reflect.ValueOf(flat)
	for row, port := range ports {
		chunk := port.Buffer()
		if chunk.Elements() < n {
			return nil, errors.Errorf("input port %q has %d elements, %d requested", port.Name(), chunk.Elements(), n)
		}
		reflect.Copy(flatV.Slice(row*cols, (row+1)*cols), reflect.ValueOf(chunk.Slice(0, n).Flat()))
	}
	array, err := arrays.Wrap(ctx, flat, rows, cols)
	if err != nil {
		return nil, err
	}
	for _, port := range ports {
		port.Consume(n)
	}
	klog.V(2).Infof("adapter: read %d elements from %d ports into %s", n, rows, array)
	return array, nil
}

// checkWritable validates that array can be written to ports of dtype.
func checkWritable(ctx *device.Context, dtype stream.DType, array *arrays.Array) error {
	if err := array.CheckValid(); err != nil {
		return err
	}
	if err := array.CheckContext(ctx); err != nil {
		return err
	}
	deviceType, err := typebridge.ToDeviceType(dtype)
	if err != nil {
		return err
	}
	if deviceType != array.DType() {
		return errors.Wrapf(ErrTypeMismatch, "cannot write array of %s to output port of type %s", array.DType(), dtype)
	}
	if array.Cols()%dtype.ValuesPerElement() != 0 {
		return errors.Wrapf(ErrShapeMismatch, "array %s doesn't hold a whole number of %s elements", array.Shape(), dtype)
	}
	return nil
}

// writeRow emits the values of flat (a rank-1 run of values) to port. If they fit in the current output slab
// they are copied into it, otherwise flat is posted, if owned, or a copy of it.
func writeRow(port stream.OutputPort, flat any, owned bool) error {
	dtype := port.DType()
	elements := reflect.ValueOf(flat).Len() / dtype.ValuesPerElement()
	if elements == 0 {
		return nil
	}
	if elements <= port.Elements() {
		reflect.Copy(reflect.ValueOf(port.Buffer().Flat()), reflect.ValueOf(flat))
		port.Produce(elements)
		return nil
	}
	chunk, err := stream.ChunkFromFlat(dtype, flat)
	if err != nil {
		return err
	}
	if !owned {
		chunk = chunk.Clone()
	}
	port.PostBuffer(chunk)
	return nil
}

// WriteSingle emits the values of a one-row array (rank 0 or 1, or rank 2 with one row) to port.
//
// The values are copied into the output slab if they fit, otherwise the array storage is posted.
// Either way the array is consumed, and it becomes invalid.
func WriteSingle(ctx *device.Context, port stream.OutputPort, array *arrays.Array) error {
	if err := checkWritable(ctx, port.DType(), array); err != nil {
		return errors.WithMessagef(err, "output port %q", port.Name())
	}
	if array.Rows() != 1 {
		return errors.Wrapf(ErrShapeMismatch, "output port %q: cannot write array %s with %d rows to a single port",
			port.Name(), array.Shape(), array.Rows())
	}
	elements := array.Cols() / port.DType().ValuesPerElement()
	if elements <= port.Elements() {
		var err error
		if accessErr := array.ConstFlatData(func(flat any) { err = writeRow(port, flat, false) }); accessErr != nil {
			return accessErr
		}
		if err != nil {
			return err
		}
		return array.Finalize()
	}
	flat, err := array.DonateFlat()
	if err != nil {
		return err
	}
	return writeRow(port, flat, true)
}

// PostSingle emits the values of a one-row array to port by handing its storage downstream, without
// copying it into the output slab. It's used by nodes that forward their input buffers.
// The array is consumed, and it becomes invalid.
func PostSingle(ctx *device.Context, port stream.OutputPort, array *arrays.Array) error {
	if err := checkWritable(ctx, port.DType(), array); err != nil {
		return errors.WithMessagef(err, "output port %q", port.Name())
	}
	if array.Rows() != 1 {
		return errors.Wrapf(ErrShapeMismatch, "output port %q: cannot post array %s with %d rows to a single port",
			port.Name(), array.Shape(), array.Rows())
	}
	flat, err := array.DonateFlat()
	if err != nil {
		return err
	}
	chunk, err := stream.ChunkFromFlat(port.DType(), flat)
	if err != nil {
		return err
	}
	port.PostBuffer(chunk)
	return nil
}

// WriteBatched emits row i of array to ports[i]. It returns ErrShapeMismatch if the number of rows
// differs from the number of ports. The array is consumed, and it becomes invalid.
func WriteBatched(ctx *device.Context, ports []stream.OutputPort, array *arrays.Array) error {
	if array.Rows() != len(ports) || array.Shape().Rank() > 2 {
		return errors.Wrapf(ErrShapeMismatch, "cannot write array %s to %d output ports", array.Shape(), len(ports))
	}
	for _, port := range ports {
		if err := checkWritable(ctx, port.DType(), array); err != nil {
			return errors.WithMessagef(err, "output port %q", port.Name())
		}
	}
	cols := array.Cols()
	var err error
	accessErr := array.ConstFlatData(func(flat any) {
		flatV := reflect.ValueOf(flat)
		for row, port := range ports {
			err = writeRow(port, flatV.Slice(row*cols, (row+1)*cols).Interface(), false)
			if err != nil {
				return
			}
		}
	})
	if accessErr != nil {
		return accessErr
	}
	if err != nil {
		return err
	}
	return array.Finalize()
}
