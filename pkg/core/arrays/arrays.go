// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package arrays implements Array, a device-resident array with an element type and a shape.
//
// Arrays streamed between ports are either rank-1 (one channel) or rank-2 (one row per channel, in
// row-major order). An Array always belongs to the backend and device of the device.Context it was
// created with, and it can only be used with that same context.
//
// Ownership: an Array exclusively owns its backend buffer. Kernels borrow the values (MutableFlatData,
// ConstFlatData), while Donate and Finalize end the Array's life: after them the array is invalid.
//
// There are various ways to create an Array:
//
//   - FromFlat(ctx, flat, dims...): copies the Go flat slice to the device.
//   - Wrap(ctx, flat, dims...): uses flat as the device storage, if the backend shares host memory,
//     and copies it otherwise. The ownership of flat is transferred to the Array.
//   - Zeros(ctx, dtype, dims...): an array with zero values.
//   - FromBuffer(ctx, buffer): takes ownership of a backend buffer.
package arrays

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/core/shapes"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/pkg/errors"
)

// ErrContextMismatch is returned when an array is used with a context other than the one it was created with.
var ErrContextMismatch = errors.New("context mismatch")

// Array is a device array. See package documentation for details.
type Array struct {
	mu      sync.Mutex
	shape   shapes.Shape
	key     device.Key
	backend backends.Backend
	buffer  backends.Buffer

	// sharedFlat is set if the backend shares host memory: it points to the buffer storage.
	sharedFlat any
}

// newArray for the given buffer, in ctx.
func newArray(ctx *device.Context, buffer backends.Buffer) (*Array, error) {
	backend := ctx.Backend()
	shape, err := backend.BufferShape(buffer)
	if err != nil {
		return nil, err
	}
	deviceNum, err := backend.BufferDeviceNum(buffer)
	if err != nil {
		return nil, err
	}
	if deviceNum != ctx.DeviceNum() {
		return nil, errors.Wrapf(ErrContextMismatch, "buffer is on device #%d, context %s", deviceNum, ctx.Key())
	}
	a := &Array{
		shape:   shape,
		key:     ctx.Key(),
		backend: backend,
		buffer:  buffer,
	}
	if backend.HasSharedBuffers() {
		a.sharedFlat, err = backend.BufferData(buffer)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// FromBuffer creates an Array from a buffer of the context's backend and device.
// The ownership of the buffer is transferred to the new Array.
func FromBuffer(ctx *device.Context, buffer backends.Buffer) (*Array, error) {
	return newArray(ctx, buffer)
}

// shapeForFlat returns the shape of an array with the values of flat and the given dimensions.
// If no dimensions are given, it returns a rank-1 shape with all the values.
func shapeForFlat(flat any, dimensions []int) (shapes.Shape, error) {
	dtype := dtypes.FromFlat(flat)
	if dtype == dtypes.InvalidDType {
		return shapes.Invalid(), errors.Errorf("cannot create array from %T: not a slice of a supported type", flat)
	}
	length := reflect.ValueOf(flat).Len()
	if len(dimensions) == 0 {
		dimensions = []int{length}
	}
	size := 1
	for _, dim := range dimensions {
		if dim <= 0 {
			return shapes.Invalid(), errors.Errorf("invalid array dimensions %v: arrays can't be empty", dimensions)
		}
		size *= dim
	}
	if size != length {
		return shapes.Invalid(), errors.Errorf("flat has %d values, dimensions %v require %d", length, dimensions, size)
	}
	return shapes.Make(dtype, dimensions...), nil
}

// FromFlat creates an Array on the context's device with a copy of the values in flat.
// If no dimensions are given, the array is rank-1 with all values.
func FromFlat(ctx *device.Context, flat any, dimensions ...int) (*Array, error) {
	shape, err := shapeForFlat(flat, dimensions)
	if err != nil {
		return nil, err
	}
	buffer, err := ctx.Backend().BufferFromFlatData(ctx.DeviceNum(), flat, shape)
	if err != nil {
		return nil, err
	}
	return newArray(ctx, buffer)
}

// Wrap creates an Array that uses flat as its storage if the backend shares host memory, or with a copy
// of flat otherwise. Either way, the caller gives up the ownership of flat.
func Wrap(ctx *device.Context, flat any, dimensions ...int) (*Array, error) {
	backend := ctx.Backend()
	if !backend.HasSharedBuffers() {
		return FromFlat(ctx, flat, dimensions...)
	}
	shape, err := shapeForFlat(flat, dimensions)
	if err != nil {
		return nil, err
	}
	buffer, err := backend.WrapSharedBuffer(ctx.DeviceNum(), flat, shape)
	if err != nil {
		return nil, err
	}
	return newArray(ctx, buffer)
}

// Zeros creates an Array of the given dtype and dimensions filled with zeros.
func Zeros(ctx *device.Context, dtype dtypes.DType, dimensions ...int) (*Array, error) {
	shape := shapes.Make(dtype, dimensions...)
	backend := ctx.Backend()
	if backend.HasSharedBuffers() {
		buffer, flat, err := backend.NewSharedBuffer(ctx.DeviceNum(), shape)
		if err != nil {
			return nil, err
		}
		// Pooled buffers may hold stale values.
		reflect.ValueOf(flat).Clear()
		return newArray(ctx, buffer)
	}
	return FromFlat(ctx, dtype.MakeFlat(shape.Size()), dimensions...)
}

// Shape of the array.
func (a *Array) Shape() shapes.Shape { return a.shape }

// DType of the array elements.
func (a *Array) DType() dtypes.DType { return a.shape.DType }

// Rows returns the number of rows (channels) of the array.
func (a *Array) Rows() int { return a.shape.Rows() }

// Cols returns the number of columns (values per channel) of the array.
func (a *Array) Cols() int { return a.shape.Cols() }

// Size returns the total number of values.
func (a *Array) Size() int { return a.shape.Size() }

// Key returns the backend and device the array lives on.
func (a *Array) Key() device.Key { return a.key }

// IsShared returns whether the array values live in host memory shared with the backend.
func (a *Array) IsShared() bool { return a.sharedFlat != nil }

// String implements fmt.Stringer.
func (a *Array) String() string {
	return fmt.Sprintf("Array(%s@%s)", a.shape, a.key)
}

// IsFinalized returns whether the array was finalized or donated.
func (a *Array) IsFinalized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer == nil
}

// CheckValid returns an error if the array was finalized or donated.
func (a *Array) CheckValid() error {
	if a == nil {
		return errors.New("nil Array")
	}
	if a.IsFinalized() {
		return errors.Errorf("array %s has been finalized or donated", a.shape)
	}
	return nil
}

// CheckContext returns ErrContextMismatch if the array was not created with a context with the same
// backend and device as ctx.
func (a *Array) CheckContext(ctx *device.Context) error {
	if a.key != ctx.Key() {
		return errors.Wrapf(ErrContextMismatch, "array %s used with context %s", a, ctx.Key())
	}
	return nil
}

// Buffer returns the backend buffer of the array. The array keeps its ownership.
func (a *Array) Buffer() (backends.Buffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer == nil {
		return nil, errors.Errorf("array %s has been finalized or donated", a.shape)
	}
	return a.buffer, nil
}

// Donate returns the backend buffer and transfers its ownership to the caller. The array becomes invalid.
func (a *Array) Donate() (backends.Buffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer == nil {
		return nil, errors.Errorf("array %s has been finalized or donated", a.shape)
	}
	buffer := a.buffer
	a.buffer = nil
	a.sharedFlat = nil
	return buffer, nil
}

// DonateFlat returns the flat values of the array, transferring their ownership to the caller.
// For shared arrays this involves no copy. The array becomes invalid.
func (a *Array) DonateFlat() (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer == nil {
		return nil, errors.Errorf("array %s has been finalized or donated", a.shape)
	}
	var flat any
	if a.sharedFlat != nil {
		flat = a.sharedFlat
	} else {
		flat = a.shape.DType.MakeFlat(a.shape.Size())
		if err := a.backend.BufferToFlatData(a.buffer, flat); err != nil {
			return nil, err
		}
		if err := a.backend.BufferFinalize(a.buffer); err != nil {
			return nil, err
		}
	}
	a.buffer = nil
	a.sharedFlat = nil
	return flat, nil
}

// Finalize releases the array buffer immediately. The array becomes invalid.
// Finalizing an already finalized array is a no-op.
func (a *Array) Finalize() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer == nil {
		return nil
	}
	buffer := a.buffer
	a.buffer = nil
	a.sharedFlat = nil
	if a.backend.IsFinalized() {
		return nil
	}
	if err := a.backend.BufferFinalize(buffer); err != nil {
		return errors.WithMessagef(err, "Array.Finalize: failed to finalize buffer of %s", a.shape)
	}
	return nil
}

// MutableFlatData calls accessFn with a flat slice with the array values, which may be changed until
// accessFn returns. During this time the array is locked.
//
// For shared arrays this is the device storage itself. Otherwise, the values are transferred to host and
// back to the device when accessFn returns.
func (a *Array) MutableFlatData(accessFn func(flat any)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer == nil {
		return errors.Errorf("array %s has been finalized or donated", a.shape)
	}
	if a.sharedFlat != nil {
		accessFn(a.sharedFlat)
		return nil
	}
	flat := a.shape.DType.MakeFlat(a.shape.Size())
	if err := a.backend.BufferToFlatData(a.buffer, flat); err != nil {
		return err
	}
	accessFn(flat)
	newBuffer, err := a.backend.BufferFromFlatData(a.key.DeviceNum, flat, a.shape)
	if err != nil {
		return err
	}
	oldBuffer := a.buffer
	a.buffer = newBuffer
	return a.backend.BufferFinalize(oldBuffer)
}

// ConstFlatData calls accessFn with a flat slice with the array values. The values must not be changed.
func (a *Array) ConstFlatData(accessFn func(flat any)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buffer == nil {
		return errors.Errorf("array %s has been finalized or donated", a.shape)
	}
	if a.sharedFlat != nil {
		accessFn(a.sharedFlat)
		return nil
	}
	flat := a.shape.DType.MakeFlat(a.shape.Size())
	if err := a.backend.BufferToFlatData(a.buffer, flat); err != nil {
		return err
	}
	accessFn(flat)
	return nil
}

// MutableFlatData is the generic version of Array.MutableFlatData.
// It returns an error if T doesn't match the array dtype.
func MutableFlatData[T dtypes.Supported](a *Array, accessFn func(flat []T)) error {
	if a.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		return errors.Errorf("MutableFlatData[%T] is incompatible with array dtype %s", v, a.shape.DType)
	}
	return a.MutableFlatData(func(flat any) { accessFn(flat.([]T)) })
}

// ConstFlatData is the generic version of Array.ConstFlatData.
// It returns an error if T doesn't match the array dtype.
func ConstFlatData[T dtypes.Supported](a *Array, accessFn func(flat []T)) error {
	if a.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		return errors.Errorf("ConstFlatData[%T] is incompatible with array dtype %s", v, a.shape.DType)
	}
	return a.ConstFlatData(func(flat any) { accessFn(flat.([]T)) })
}

// CopyFlatData returns a copy of the array values.
func CopyFlatData[T dtypes.Supported](a *Array) ([]T, error) {
	var values []T
	err := ConstFlatData(a, func(flat []T) {
		values = make([]T, len(flat))
		copy(values, flat)
	})
	return values, err
}

// CopyRow returns a flat slice with a copy of the values of row.
func (a *Array) CopyRow(row int) (any, error) {
	if row < 0 || row >= a.Rows() {
		return nil, errors.Errorf("row %d out of range for array %s", row, a.shape)
	}
	cols := a.Cols()
	values := a.shape.DType.MakeFlat(cols)
	err := a.ConstFlatData(func(flat any) {
		reflect.Copy(reflect.ValueOf(values), reflect.ValueOf(flat).Slice(row*cols, (row+1)*cols))
	})
	return values, err
}

// ScalarAt returns the value at the given flat index, as its Go type (e.g. float32 for Float32 arrays).
func (a *Array) ScalarAt(index int) (any, error) {
	if index < 0 || index >= a.Size() {
		return nil, errors.Errorf("index %d out of range for array %s", index, a.shape)
	}
	var value any
	err := a.ConstFlatData(func(flat any) {
		value = reflect.ValueOf(flat).Index(index).Interface()
	})
	return value, err
}
