// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stream

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// BufferChunk is a contiguous run of stream elements of one DType.
//
// The values are stored in a flat Go slice: []float32 for "float32", []complex64 for "complex_float32".
// Complex integer types have no Go equivalent, their values are stored as interleaved real and
// imaginary components ([]int16 with 2 values per "complex_int16" element). Elements with a
// Dimension > 1 use Dimension consecutive values.
//
// Copying a BufferChunk doesn't copy the values, it creates another reference to them.
type BufferChunk struct {
	dtype DType
	flat  any
}

var goScalarTypes = map[DType]reflect.Type{
	Int8:           reflect.TypeOf(int8(0)),
	Int16:          reflect.TypeOf(int16(0)),
	Int32:          reflect.TypeOf(int32(0)),
	Int64:          reflect.TypeOf(int64(0)),
	Uint8:          reflect.TypeOf(uint8(0)),
	Uint16:         reflect.TypeOf(uint16(0)),
	Uint32:         reflect.TypeOf(uint32(0)),
	Uint64:         reflect.TypeOf(uint64(0)),
	Float16:        reflect.TypeOf(float16.Float16(0)),
	Float32:        reflect.TypeOf(float32(0)),
	Float64:        reflect.TypeOf(float64(0)),
	ComplexFloat32: reflect.TypeOf(complex64(0)),
	ComplexFloat64: reflect.TypeOf(complex128(0)),
}

// GoType returns the Go type of the values in a flat slice holding dtype elements.
func (dtype DType) GoType() (reflect.Type, error) {
	scalar := dtype.Scalar()
	if scalar.Complex && scalar.Kind != KindFloat {
		scalar = scalar.Component()
	}
	t, found := goScalarTypes[scalar]
	if !found {
		return nil, errors.Errorf("stream dtype %s has no Go storage type", dtype)
	}
	return t, nil
}

// ValuesPerElement returns the number of flat values used by one element.
func (dtype DType) ValuesPerElement() int {
	n := dtype.Dimension
	if dtype.Complex && dtype.Kind != KindFloat {
		n *= 2
	}
	return n
}

// NewBufferChunk allocates a zeroed chunk with the given number of elements.
// It panics if dtype is not valid.
func NewBufferChunk(dtype DType, elements int) BufferChunk {
	t, err := dtype.GoType()
	if err != nil {
		panic(err)
	}
	length := elements * dtype.ValuesPerElement()
	return BufferChunk{dtype: dtype, flat: reflect.MakeSlice(reflect.SliceOf(t), length, length).Interface()}
}

// ChunkFromFlat creates a chunk referencing the values in flat (no copy).
// The flat slice type must match the storage type of dtype, and hold a whole number of elements.
func ChunkFromFlat(dtype DType, flat any) (BufferChunk, error) {
	t, err := dtype.GoType()
	if err != nil {
		return BufferChunk{}, err
	}
	v := reflect.ValueOf(flat)
	if v.Kind() != reflect.Slice || v.Type().Elem() != t {
		return BufferChunk{}, errors.Errorf("flat values (%T) don't match stream dtype %s, expected []%s", flat, dtype, t)
	}
	if v.Len()%dtype.ValuesPerElement() != 0 {
		return BufferChunk{}, errors.Errorf("flat values have %d entries, which is not a multiple of the %d values "+
			"per element of %s", v.Len(), dtype.ValuesPerElement(), dtype)
	}
	return BufferChunk{dtype: dtype, flat: flat}, nil
}

// MakeChunk creates a scalar chunk referencing values (no copy).
func MakeChunk[T Scalar](values []T) BufferChunk {
	return BufferChunk{dtype: DTypeOf[T](), flat: values}
}

// Values returns the flat values of the chunk as []T.
// It panics if T is not the storage type of the chunk.
func Values[T Scalar](c BufferChunk) []T {
	if c.flat == nil {
		return nil
	}
	return c.flat.([]T)
}

// DType of the chunk elements.
func (c BufferChunk) DType() DType { return c.dtype }

// Flat returns the flat slice with the values.
func (c BufferChunk) Flat() any { return c.flat }

// IsNil returns whether the chunk holds no storage.
func (c BufferChunk) IsNil() bool { return c.flat == nil }

// Elements returns the number of elements in the chunk.
func (c BufferChunk) Elements() int {
	if c.flat == nil {
		return 0
	}
	return reflect.ValueOf(c.flat).Len() / c.dtype.ValuesPerElement()
}

// Length returns the size of the chunk in bytes.
func (c BufferChunk) Length() int {
	return c.Elements() * c.dtype.Size()
}

// Slice returns the chunk with elements [start, end). The result shares the values with c, but its
// capacity ends at end, so appending to it never overwrites c's values past end.
func (c BufferChunk) Slice(start, end int) BufferChunk {
	if c.flat == nil {
		return c
	}
	n := c.dtype.ValuesPerElement()
	v := reflect.ValueOf(c.flat)
	return BufferChunk{dtype: c.dtype, flat: v.Slice3(start*n, end*n, end*n).Interface()}
}

// Clone returns a deep copy of the chunk.
func (c BufferChunk) Clone() BufferChunk {
	if c.flat == nil {
		return c
	}
	clone := NewBufferChunk(c.dtype, c.Elements())
	reflect.Copy(reflect.ValueOf(clone.flat), reflect.ValueOf(c.flat))
	return clone
}

// CopyFrom copies the elements of src into c, returning the number of elements copied.
// Both chunks must have the same dtype.
func (c BufferChunk) CopyFrom(src BufferChunk) (int, error) {
	if c.dtype != src.dtype {
		return 0, errors.Errorf("cannot copy %s elements into a %s chunk", src.dtype, c.dtype)
	}
	if c.flat == nil || src.flat == nil {
		return 0, nil
	}
	n := reflect.Copy(reflect.ValueOf(c.flat), reflect.ValueOf(src.flat))
	return n / c.dtype.ValuesPerElement(), nil
}

// Append returns a chunk with the elements of c followed by the elements of other.
// It may reuse c's storage if it has enough capacity.
func (c BufferChunk) Append(other BufferChunk) (BufferChunk, error) {
	if c.flat == nil {
		return other, nil
	}
	if other.flat == nil {
		return c, nil
	}
	if c.dtype != other.dtype {
		return c, errors.Errorf("cannot append %s elements to a %s chunk", other.dtype, c.dtype)
	}
	flat := reflect.AppendSlice(reflect.ValueOf(c.flat), reflect.ValueOf(other.flat)).Interface()
	return BufferChunk{dtype: c.dtype, flat: flat}, nil
}
