// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package adapter_test

import (
	"testing"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/backends/cpu"
	. "github.com/gomlx/flowarray/pkg/adapter"
	"github.com/gomlx/flowarray/pkg/core/arrays"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/gomlx/flowarray/pkg/typebridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	ctx     *device.Context
	inputs  []stream.InputPort
	outputs []stream.OutputPort
}

func (n *testNode) Context() *device.Context     { return n.ctx }
func (n *testNode) Inputs() []stream.InputPort   { return n.inputs }
func (n *testNode) Outputs() []stream.OutputPort { return n.outputs }

func newTestContext(t *testing.T) *device.Context {
	reg := backends.NewRegistry()
	reg.Register(backends.KindCPU, func(string) (backends.Backend, error) {
		return cpu.NewBackend(backends.KindCPU, "DeviceA", "DeviceB"), nil
	})
	ctx, err := device.NewContext(device.BuildCatalog(reg))
	require.NoError(t, err)
	return ctx
}

func inputWith[T stream.Scalar](t *testing.T, name string, values []T) *stream.Input {
	in := stream.NewInput(name, 0, stream.DTypeOf[T]())
	if len(values) > 0 {
		require.NoError(t, in.Push(stream.MakeChunk(values)))
	}
	return in
}

func iota32(n int) []float32 {
	values := make([]float32, n)
	for ii := range values {
		values[ii] = float32(ii)
	}
	return values
}

func TestReadBatched(t *testing.T) {
	ctx := newTestContext(t)
	a, b, c := inputWith(t, "0", iota32(10)), inputWith(t, "1", iota32(7)), inputWith(t, "2", iota32(12))
	array, err := ReadBatched(ctx, []stream.InputPort{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, 3, array.Rows())
	assert.Equal(t, 7, array.Cols())
	assert.Equal(t, 3, a.Elements())
	assert.Equal(t, 0, b.Elements())
	assert.Equal(t, 5, c.Elements())
	row, err := array.CopyRow(2)
	require.NoError(t, err)
	assert.Equal(t, iota32(7), row)

	mixed := []stream.InputPort{inputWith(t, "0", iota32(3)), inputWith(t, "1", []float64{1, 2, 3})}
	_, err = ReadBatched(ctx, mixed)
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.Equal(t, 3, mixed[0].Elements(), "nothing consumed on error")

	_, err = ReadBatched(ctx, []stream.InputPort{a, b})
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, 3, a.Elements())
}

func TestReadSingle(t *testing.T) {
	ctx := newTestContext(t)
	a, b := inputWith(t, "0", []int16{1, 2, 3, 4, 5}), inputWith(t, "1", []int16{9, 9})
	node := &testNode{ctx: ctx, inputs: []stream.InputPort{a, b}}

	array, err := ReadSingle(node, a, true)
	require.NoError(t, err)
	values, err := arrays.CopyFlatData[int16](array)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2}, values)

	array, err = ReadSingle(node, a, false)
	require.NoError(t, err)
	values, err = arrays.CopyFlatData[int16](array)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, 4, 5}, values)

	_, err = ReadSingle(node, a, false)
	require.ErrorIs(t, err, ErrEmptyInput)
	_, err = ReadSingle(node, b, true)
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, 2, b.Elements())
}

func TestReadUnsupportedType(t *testing.T) {
	ctx := newTestContext(t)
	in := inputWith(t, "0", []int8{1, 2})
	_, err := ReadElements(ctx, in, 2)
	require.ErrorIs(t, err, typebridge.ErrUnsupportedType)
	assert.Equal(t, 2, in.Elements())
}

func TestReadVectorElements(t *testing.T) {
	ctx := newTestContext(t)
	in := stream.NewInput("0", 0, stream.Float32.WithDimension(2))
	chunk, err := stream.ChunkFromFlat(in.DType(), []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, in.Push(chunk))
	assert.Equal(t, 3, in.Elements())
	array, err := ReadElements(ctx, in, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, array.Cols())
	assert.Equal(t, 1, in.Elements())
}

func TestTakeSingle(t *testing.T) {
	ctx := newTestContext(t)
	in := inputWith(t, "0", []float64{1, 2, 3, 4})
	storage := stream.Values[float64](in.Buffer())
	array, err := TakeSingle(ctx, in, 3)
	require.NoError(t, err)
	require.NoError(t, arrays.MutableFlatData(array, func(flat []float64) { flat[0] = -1 }))
	assert.Equal(t, -1.0, storage[0], "taken elements are not copied")
	assert.Equal(t, []float64{4}, stream.Values[float64](in.Buffer()))
}

func TestWriteSingle(t *testing.T) {
	ctx := newTestContext(t)
	out := stream.NewOutput("0", 0, stream.ComplexFloat32, ctx.Domain())
	manager, err := stream.NewBufferManager(stream.BufferManagerArgs{BufferSize: 4 * 8})
	require.NoError(t, err)
	out.SetBufferManager(manager)
	sink := stream.NewInput("sink", 0, stream.ComplexFloat32)
	require.NoError(t, out.Subscribe(sink))

	// Fits in the slab: copied.
	array, err := arrays.FromFlat(ctx, []complex64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, WriteSingle(ctx, out, array))
	require.Error(t, array.CheckValid(), "array is consumed")

	// Doesn't fit: posted.
	array, err = arrays.FromFlat(ctx, []complex64{4, 5, 6, 7, 8})
	require.NoError(t, err)
	require.NoError(t, WriteSingle(ctx, out, array))
	assert.Equal(t, []complex64{1, 2, 3, 4, 5, 6, 7, 8}, stream.Values[complex64](sink.Buffer()))

	wrongType, err := arrays.FromFlat(ctx, []float32{1})
	require.NoError(t, err)
	require.ErrorIs(t, WriteSingle(ctx, out, wrongType), ErrTypeMismatch)

	twoRows, err := arrays.FromFlat(ctx, []complex64{1, 2}, 2, 1)
	require.NoError(t, err)
	require.ErrorIs(t, WriteSingle(ctx, out, twoRows), ErrShapeMismatch)

	other := newTestContext(t)
	require.NoError(t, other.SetDevice("DeviceB"))
	require.ErrorIs(t, WriteSingle(other, out, twoRows), arrays.ErrContextMismatch)
}

func TestWriteBatched(t *testing.T) {
	ctx := newTestContext(t)
	var outs []stream.OutputPort
	var sinks []*stream.Input
	for ii := range 3 {
		out := stream.NewOutput("out", ii, stream.Uint32, ctx.Domain())
		sink := stream.NewInput("sink", ii, stream.Uint32)
		require.NoError(t, out.Subscribe(sink))
		outs = append(outs, out)
		sinks = append(sinks, sink)
	}
	array, err := arrays.FromFlat(ctx, []uint32{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)
	require.ErrorIs(t, WriteBatched(ctx, outs[:2], array), ErrShapeMismatch)
	require.NoError(t, WriteBatched(ctx, outs, array))
	assert.Equal(t, []uint32{1, 2}, stream.Values[uint32](sinks[0].Buffer()))
	assert.Equal(t, []uint32{5, 6}, stream.Values[uint32](sinks[2].Buffer()))
	require.Error(t, array.CheckValid())
}

func TestPostSingle(t *testing.T) {
	ctx := newTestContext(t)
	in := inputWith(t, "0", []float64{1, 2, 3})
	storage := stream.Values[float64](in.Buffer())
	array, err := TakeSingle(ctx, in, 3)
	require.NoError(t, err)

	out := stream.NewOutput("0", 0, stream.Float64, "forward")
	sink := stream.NewInput("sink", 0, stream.Float64)
	require.NoError(t, out.Subscribe(sink))
	require.NoError(t, PostSingle(ctx, out, array))
	require.Error(t, array.CheckValid(), "array is consumed")
	got := stream.Values[float64](sink.Buffer())
	assert.Equal(t, []float64{1, 2, 3}, got)
	assert.Same(t, &storage[0], &got[0], "buffer is forwarded without copies")

	wrongType, err := arrays.FromFlat(ctx, []float32{1})
	require.NoError(t, err)
	require.ErrorIs(t, PostSingle(ctx, out, wrongType), ErrTypeMismatch)
}
