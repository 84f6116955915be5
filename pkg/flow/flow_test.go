// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package flow_test

import (
	"context"
	"slices"
	"testing"

	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/blocks"
	"github.com/gomlx/flowarray/pkg/device/devicetest"
	"github.com/gomlx/flowarray/pkg/flow"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleWithLabels(t *testing.T) {
	ctx := devicetest.NewContext(t)
	feeder := flow.NewFeeder(ctx, stream.Float32)
	scale := must.M1(blocks.NewScale(ctx, stream.Float32, 1))
	require.NoError(t, scale.Set(blocks.ScaleSetterLabelID, "X"))
	collector := flow.NewCollector(ctx, stream.Float32)
	topology := flow.New()
	require.NoError(t, topology.Connect(feeder, 0, scale, 0))
	require.NoError(t, topology.Connect(scale, 0, collector, 0))
	assert.Len(t, topology.Nodes(), 3)
	assert.Len(t, topology.Edges(), 2)

	values := make([]float32, 20)
	for ii := range values {
		values[ii] = 1
	}
	require.NoError(t, feeder.Feed(stream.MakeChunk(values),
		stream.Label{ID: "X", Data: 5.0, Index: 0},
		stream.Label{ID: "X", Data: float32(9), Index: 12}))
	require.NoError(t, topology.Run(context.Background()))

	got := stream.Values[float32](collector.Buffer())
	require.Len(t, got, 20)
	for ii, v := range got {
		if ii < 12 {
			require.Equal(t, float32(5), v, "element %d", ii)
		} else {
			require.Equal(t, float32(9), v, "element %d", ii)
		}
	}
	assert.Equal(t, 0, feeder.Pending())
	assert.Empty(t, collector.Labels(), "labels are consumed by the scale node")
}

func TestFFTRoundTrip(t *testing.T) {
	ctx := devicetest.NewContext(t)
	const numBins = 32
	feeder := flow.NewFeeder(ctx, stream.ComplexFloat64)
	forward := must.M1(blocks.NewFFT(ctx, stream.ComplexFloat64, numBins, 1, 1, false))
	inverse := must.M1(blocks.NewFFT(ctx, stream.ComplexFloat64, numBins, 1, 1, true))
	collector := flow.NewCollector(ctx, stream.ComplexFloat64)
	topology := flow.New()
	require.NoError(t, topology.Connect(feeder, 0, forward, 0))
	require.NoError(t, topology.Connect(forward, 0, inverse, 0))
	require.NoError(t, topology.Connect(inverse, 0, collector, 0))

	signal := make([]complex128, 2*numBins+numBins/2)
	for ii := range signal {
		signal[ii] = complex(float64(ii%7), float64(-ii%5))
	}
	require.NoError(t, feeder.Feed(stream.MakeChunk(slices.Clone(signal[:numBins/2]))))
	require.NoError(t, feeder.Feed(stream.MakeChunk(slices.Clone(signal[numBins/2:]))))
	require.NoError(t, topology.Run(context.Background()))

	got := stream.Values[complex128](collector.Buffer())
	require.Len(t, got, 2*numBins, "the last partial block waits for more elements")
	for ii, v := range got {
		require.InDelta(t, real(signal[ii]), real(v), 1e-9, "element %d", ii)
		require.InDelta(t, imag(signal[ii]), imag(v), 1e-9, "element %d", ii)
	}
	assert.Equal(t, numBins/2, forward.Input(0).Elements())

	manager := forward.Output(0).BufferManager()
	assert.Equal(t, stream.DefaultBufferSize, manager.BufferSize(), "declared size is smaller than the default")
}

func TestCommitSizing(t *testing.T) {
	ctx := devicetest.NewContext(t)
	const numBins = 4096
	feeder := flow.NewFeeder(ctx, stream.ComplexFloat32)
	fft := must.M1(blocks.NewFFT(ctx, stream.ComplexFloat32, numBins, 1, 1, false))
	topology := flow.New()
	require.NoError(t, topology.Connect(feeder, 0, fft, 0))
	require.NoError(t, topology.Commit())
	assert.Equal(t, numBins*8, fft.Output(0).BufferManager().BufferSize())
	assert.Equal(t, stream.DefaultBufferSize, feeder.Output(0).BufferManager().BufferSize())
	require.Error(t, topology.Connect(feeder, 0, fft, 0), "topology is committed")
}

func TestDownstreamDomain(t *testing.T) {
	feeder := flow.NewFeeder(devicetest.NewContext(t), stream.Float32)
	scale := must.M1(blocks.NewScale(devicetest.NewContext(t), stream.Float32, 2))
	require.NoError(t, scale.Set("device", "DeviceB"))
	topology := flow.New()
	require.NoError(t, topology.Connect(feeder, 0, scale, 0))
	require.NoError(t, topology.Commit())
	assert.Equal(t, "flowarray:cpu:0", feeder.Output(0).Domain())
	assert.Equal(t, "flowarray:cpu:1", topology.DownstreamDomain(feeder, 0))
	assert.Equal(t, scale.Output(0).Domain(), topology.DownstreamDomain(scale, 0), "not connected")
}

func TestMinMaxLabels(t *testing.T) {
	ctx := devicetest.NewContext(t)
	feeder := flow.NewFeeder(ctx, stream.Uint16)
	maxNode := must.M1(blocks.NewMax(ctx, stream.Uint16))
	collector := flow.NewCollector(ctx, stream.Uint16)
	topology := flow.New()
	require.NoError(t, topology.Connect(feeder, 0, maxNode, 0))
	require.NoError(t, topology.Connect(maxNode, 0, collector, 0))

	require.NoError(t, feeder.Feed(stream.MakeChunk([]uint16{1, 7, 3})))
	require.NoError(t, topology.Run(context.Background()))
	require.NoError(t, feeder.Feed(stream.MakeChunk([]uint16{2, 2, 9, 4})))
	require.NoError(t, topology.Run(context.Background()))

	assert.Equal(t, []uint16{1, 7, 3, 2, 2, 9, 4}, stream.Values[uint16](collector.Buffer()))
	assert.Equal(t, []stream.Label{
		{ID: blocks.MaxLabelID, Data: uint16(7), Index: 1},
		{ID: blocks.MaxLabelID, Data: uint16(9), Index: 5},
	}, collector.Labels())

	collector.Reset()
	assert.Equal(t, 0, collector.Elements())
	assert.Empty(t, collector.Labels())
}

func TestMaxPasses(t *testing.T) {
	ctx := devicetest.NewContext(t)
	constant := must.M1(blocks.NewConstant(ctx, stream.Int32, 3))
	collector := flow.NewCollector(ctx, stream.Int32)
	topology := flow.New()
	topology.MaxPasses = 3
	require.NoError(t, topology.Connect(constant, 0, collector, 0))
	require.NoError(t, topology.Run(context.Background()))
	require.NoError(t, collector.Work())

	slab := stream.DefaultBufferSize / 4
	got := stream.Values[int32](collector.Buffer())
	require.Len(t, got, 3*slab)
	for _, v := range got {
		require.Equal(t, int32(3), v)
	}
}

func TestConnectErrors(t *testing.T) {
	ctx := devicetest.NewContext(t)
	feeder := flow.NewFeeder(ctx, stream.Float32)
	other := flow.NewFeeder(ctx, stream.Float32)
	collector := flow.NewCollector(ctx, stream.Float32)
	int16Collector := flow.NewCollector(ctx, stream.Int16)
	topology := flow.New()
	require.Error(t, topology.Connect(feeder, 1, collector, 0))
	require.Error(t, topology.Connect(feeder, 0, collector, 1))
	require.Error(t, topology.Connect(feeder, 0, int16Collector, 0))
	require.NoError(t, topology.Connect(feeder, 0, collector, 0))
	require.Error(t, topology.Connect(other, 0, collector, 0), "input already connected")
}

type failingNode struct {
	*block.Block
	err error
}

func (n *failingNode) Work() error {
	return n.Invoke(func() error { return n.err })
}

func TestRunErrors(t *testing.T) {
	ctx := devicetest.NewContext(t)
	errBoom := errors.New("boom")
	topology := flow.New()
	topology.Add(&failingNode{Block: block.New(ctx, "failing"), err: errBoom})
	require.ErrorIs(t, topology.Run(context.Background()), errBoom)

	topology = flow.New()
	topology.Add(flow.NewFeeder(ctx, stream.Float32))
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, topology.Run(cancelled), context.Canceled)
}
