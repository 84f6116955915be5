// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Compile-time check:
var _ backends.DataInterface = (*Backend)(nil)

// Buffer for the cpu backend holds a shape and a reference to the flat data.
//
// The flat data is either taken from the backend pools, or wrapped from a slice whose ownership
// was handed over by the client (see WrapSharedBuffer).
type Buffer struct {
	shape     shapes.Shape
	deviceNum backends.DeviceNum
	valid     bool

	// flat is always a slice of the underlying data type (shape.DType).
	flat any
}

type bufferPoolKey struct {
	deviceNum backends.DeviceNum
	dtype     dtypes.DType
	length    int
}

// getBufferPool for given device/dtype/length.
func (b *Backend) getBufferPool(deviceNum backends.DeviceNum, dtype dtypes.DType, length int) *sync.Pool {
	key := bufferPoolKey{deviceNum: deviceNum, dtype: dtype, length: length}
	poolInterface, ok := b.bufferPools.Load(key)
	if !ok {
		poolInterface, _ = b.bufferPools.LoadOrStore(key, &sync.Pool{
			New: func() any {
				return &Buffer{
					flat:      dtype.MakeFlat(length),
					shape:     shapes.Make(dtype, length),
					deviceNum: deviceNum,
				}
			},
		})
	}
	return poolInterface.(*sync.Pool)
}

// getBuffer from backend pool of buffers.
func (b *Backend) getBuffer(deviceNum backends.DeviceNum, dtype dtypes.DType, length int) *Buffer {
	pool := b.getBufferPool(deviceNum, dtype, length)
	buf := pool.Get().(*Buffer)
	buf.valid = true
	return buf
}

// putBuffer back into the backend pool of buffers.
// After this any references to buffer should be dropped.
func (b *Backend) putBuffer(buffer *Buffer) {
	if buffer == nil || !buffer.shape.Ok() {
		return
	}
	buffer.valid = false
	if b.isFinalized.Load() {
		return
	}
	pool := b.getBufferPool(buffer.deviceNum, buffer.shape.DType, buffer.shape.Size())
	pool.Put(buffer)
}

// copyFlat assumes both flat slices are of the same underlying type.
func copyFlat(flatDst, flatSrc any) {
	reflect.Copy(reflect.ValueOf(flatDst), reflect.ValueOf(flatSrc))
}

// flatLen returns the length of the flat slice.
func flatLen(flat any) int {
	return reflect.ValueOf(flat).Len()
}

// NewBuffer creates the buffer with a newly allocated flat space.
func (b *Backend) NewBuffer(deviceNum backends.DeviceNum, shape shapes.Shape) *Buffer {
	buffer := b.getBuffer(deviceNum, shape.DType, shape.Size())
	buffer.shape = shape.Clone()
	return buffer
}

// castBuffer checks that buffer was created by a cpu backend and that it is still valid.
func (b *Backend) castBuffer(buffer backends.Buffer) (*Buffer, error) {
	buf, ok := buffer.(*Buffer)
	if !ok {
		return nil, errors.Errorf("buffer (%T) is not a %q backend buffer", buffer, b.Name())
	}
	if buf == nil || buf.flat == nil || !buf.shape.Ok() || !buf.valid {
		var issues []string
		if buf == nil {
			issues = append(issues, "buffer was nil")
		} else {
			if buf.flat == nil {
				issues = append(issues, "buffer.flat was nil")
			}
			if !buf.shape.Ok() {
				issues = append(issues, "buffer.shape was invalid")
			}
			if !buf.valid {
				issues = append(issues, "buffer was marked as invalid")
			}
		}
		return nil, errors.Errorf("buffer(%p): %s -- buffer was already finalized!?", buf, strings.Join(issues, ", "))
	}
	return buf, nil
}

// BufferFinalize allows the client to inform backend that buffer is no longer needed and associated resources can be
// freed immediately.
//
// A finalized buffer should never be used again. Preferably, the caller should set its references to it to nil.
func (b *Backend) BufferFinalize(backendBuffer backends.Buffer) error {
	buffer, err := b.castBuffer(backendBuffer)
	if err != nil {
		return errors.WithMessage(err, "BufferFinalize")
	}
	b.putBuffer(buffer)
	return nil
}

// BufferShape returns the shape for the buffer.
func (b *Backend) BufferShape(buffer backends.Buffer) (shapes.Shape, error) {
	buf, err := b.castBuffer(buffer)
	if err != nil {
		return shapes.Invalid(), err
	}
	return buf.shape, nil
}

// BufferDeviceNum returns the deviceNum for the buffer.
func (b *Backend) BufferDeviceNum(buffer backends.Buffer) (backends.DeviceNum, error) {
	buf, err := b.castBuffer(buffer)
	if err != nil {
		return 0, err
	}
	return buf.deviceNum, nil
}

// BufferToFlatData transfers the flat values of the buffer to the Go flat slice.
// The slice flat must have the exact number of elements required to store the backends.Buffer shape.
func (b *Backend) BufferToFlatData(backendBuffer backends.Buffer, flat any) error {
	buf, err := b.castBuffer(backendBuffer)
	if err != nil {
		return err
	}
	if dtypes.FromFlat(flat) != buf.shape.DType || flatLen(flat) != buf.shape.Size() {
		return errors.Errorf("BufferToFlatData: flat (%T with %d elements) does not match buffer shape %s",
			flat, flatLen(flat), buf.shape)
	}
	copyFlat(flat, buf.flat)
	return nil
}

// checkFlat validates that flat can hold the contents of the shape.
func checkFlat(flat any, shape shapes.Shape) error {
	if dtypes.FromFlat(flat) != shape.DType {
		return errors.Errorf("flat data type (%T) does not match shape DType (%s)", flat, shape.DType)
	}
	if flatLen(flat) != shape.Size() {
		return errors.Errorf("flat data has %d elements, shape %s requires %d", flatLen(flat), shape, shape.Size())
	}
	return nil
}

// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding to the shape DType)
// to the deviceNum, and returns the corresponding backends.Buffer.
func (b *Backend) BufferFromFlatData(deviceNum backends.DeviceNum, flat any, shape shapes.Shape) (backends.Buffer, error) {
	if err := b.checkDeviceNum(deviceNum); err != nil {
		return nil, err
	}
	if err := checkFlat(flat, shape); err != nil {
		return nil, err
	}
	buffer := b.NewBuffer(deviceNum, shape)
	copyFlat(buffer.flat, flat)
	return buffer, nil
}

// HasSharedBuffers returns true: all cpu buffers live in host memory.
func (b *Backend) HasSharedBuffers() bool {
	return true
}

// NewSharedBuffer returns a "shared buffer" that can be both used by kernels and directly read or
// mutated by the clients.
//
// When done, to release the memory, call BufferFinalize on the returned buffer.
func (b *Backend) NewSharedBuffer(deviceNum backends.DeviceNum, shape shapes.Shape) (buffer backends.Buffer, flat any, err error) {
	if err = b.checkDeviceNum(deviceNum); err != nil {
		return nil, nil, err
	}
	goBuffer := b.NewBuffer(deviceNum, shape)
	return goBuffer, goBuffer.flat, nil
}

// WrapSharedBuffer creates a buffer that uses flat as its storage, without copying.
// When the buffer is finalized flat is recycled into the backend pools.
func (b *Backend) WrapSharedBuffer(deviceNum backends.DeviceNum, flat any, shape shapes.Shape) (backends.Buffer, error) {
	if err := b.checkDeviceNum(deviceNum); err != nil {
		return nil, err
	}
	if err := checkFlat(flat, shape); err != nil {
		return nil, err
	}
	return &Buffer{
		shape:     shape.Clone(),
		deviceNum: deviceNum,
		valid:     true,
		flat:      flat,
	}, nil
}

// BufferData returns a slice pointing to the buffer storage memory directly.
//
// The returned slice becomes invalid after the buffer is finalized.
func (b *Backend) BufferData(buffer backends.Buffer) (flat any, err error) {
	buf, err := b.castBuffer(buffer)
	if err != nil {
		return nil, err
	}
	return buf.flat, nil
}
