// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"testing"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	backend, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "cpu", backend.Name())
	assert.Equal(t, backends.KindCPU, backend.Kind())
	assert.Equal(t, backends.DeviceNum(1), backend.NumDevices())

	backend, err = New("devices=3")
	require.NoError(t, err)
	require.Equal(t, backends.DeviceNum(3), backend.NumDevices())
	info, err := backend.DeviceInfo(2)
	require.NoError(t, err)
	assert.Contains(t, info.Name, "Go CPU 2")
	assert.True(t, info.SharedMemory)
	_, err = backend.DeviceInfo(3)
	require.Error(t, err)

	_, err = New("devices=0")
	require.Error(t, err)
	_, err = New("threads=2")
	require.Error(t, err)
}

func TestRegistered(t *testing.T) {
	backend, err := backends.DefaultRegistry().New(backends.KindCPU, "devices=2")
	require.NoError(t, err)
	assert.Equal(t, backends.DeviceNum(2), backend.NumDevices())
}

func TestCapabilities(t *testing.T) {
	backend := NewBackend(backends.KindOpenCL, "DeviceA", "DeviceB")
	assert.Equal(t, "opencl", backend.Name())
	caps := backend.Capabilities()
	assert.True(t, caps.Supports(backends.OpTypeFFT, dtypes.Complex64))
	assert.False(t, caps.Supports(backends.OpTypeInvalid, dtypes.Float32))

	cloned := caps.Clone()
	assert.Equal(t, len(caps.Operations), len(cloned.Operations))
	assert.Equal(t, len(caps.DTypes), len(cloned.DTypes))
}

func TestBuffers(t *testing.T) {
	backend := NewBackend(backends.KindCPU, "DeviceA", "DeviceB")
	shape := shapes.Make(dtypes.Float32, 2, 3)
	buf, err := backend.BufferFromFlatData(1, []float32{1, 2, 3, 4, 5, 6}, shape)
	require.NoError(t, err)

	gotShape, err := backend.BufferShape(buf)
	require.NoError(t, err)
	assert.True(t, shape.Equal(gotShape))
	deviceNum, err := backend.BufferDeviceNum(buf)
	require.NoError(t, err)
	assert.Equal(t, backends.DeviceNum(1), deviceNum)

	flat := make([]float32, 6)
	require.NoError(t, backend.BufferToFlatData(buf, flat))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, flat)
	require.Error(t, backend.BufferToFlatData(buf, make([]float32, 5)))
	require.Error(t, backend.BufferToFlatData(buf, make([]float64, 6)))

	require.NoError(t, backend.BufferFinalize(buf))
	require.Error(t, backend.BufferFinalize(buf), "double finalize must fail")
	_, err = backend.BufferShape(buf)
	require.Error(t, err)

	_, err = backend.BufferFromFlatData(2, []float32{1}, shapes.Make(dtypes.Float32, 1))
	require.Error(t, err, "invalid device")
	_, err = backend.BufferFromFlatData(0, []int32{1}, shapes.Make(dtypes.Float32, 1))
	require.Error(t, err, "dtype mismatch")
}

func TestSharedBuffers(t *testing.T) {
	backend := NewBackend(backends.KindCPU, "DeviceA")
	require.True(t, backend.HasSharedBuffers())

	buf, flatAny, err := backend.NewSharedBuffer(0, shapes.Make(dtypes.Int16, 3))
	require.NoError(t, err)
	flat := flatAny.([]int16)
	flat[1] = 7
	got := make([]int16, 3)
	require.NoError(t, backend.BufferToFlatData(buf, got))
	assert.Equal(t, []int16{0, 7, 0}, got)
	require.NoError(t, backend.BufferFinalize(buf))

	// Wrapping does not copy.
	data := []complex64{1, 2i, 3}
	wrapped, err := backend.WrapSharedBuffer(0, data, shapes.Make(dtypes.Complex64, 1, 3))
	require.NoError(t, err)
	view, err := backend.BufferData(wrapped)
	require.NoError(t, err)
	view.([]complex64)[0] = 11
	assert.Equal(t, complex64(11), data[0])
	_, err = backend.WrapSharedBuffer(0, data, shapes.Make(dtypes.Complex64, 4))
	require.Error(t, err)
}

func TestFinalize(t *testing.T) {
	backend := NewBackend(backends.KindCPU, "DeviceA")
	buf, err := backend.BufferFromFlatData(0, []uint8{1, 2}, shapes.Make(dtypes.Uint8, 2))
	require.NoError(t, err)
	backend.Finalize()
	assert.True(t, backend.IsFinalized())
	_, err = backend.DeviceInfo(0)
	require.Error(t, err)
	require.NoError(t, backend.BufferFinalize(buf))
}
