// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package typebridge maps stream element types (stream.DType) to device element types (dtypes.DType),
// and validates stream types against the types an operation supports.
//
// The map is a bijection between the scalar stream types that have a device equivalent and the device
// dtypes. The stream Dimension has no device equivalent: grouped elements are laid out as consecutive
// array columns.
package typebridge

import (
	"slices"

	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedType is returned for stream types without a device equivalent, or not supported by an operation.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrIncompatibleTypes is returned when a complex type is paired with a float type of another precision.
	ErrIncompatibleTypes = errors.New("incompatible types")
)

// Support is the support matrix of an operation: which base kinds of stream types it accepts.
type Support struct {
	Int, Uint, Float, ComplexFloat bool
}

// Any returns whether anything is supported.
func (s Support) Any() bool {
	return s.Int || s.Uint || s.Float || s.ComplexFloat
}

// Predefined support matrices.
var (
	SupportAll     = Support{Int: true, Uint: true, Float: true, ComplexFloat: true}
	SupportFloat   = Support{Float: true}
	SupportComplex = Support{ComplexFloat: true}
	SupportReal    = Support{Int: true, Uint: true, Float: true}
)

var streamToDevice = map[stream.DType]dtypes.DType{
	stream.Int16:          dtypes.Int16,
	stream.Int32:          dtypes.Int32,
	stream.Int64:          dtypes.Int64,
	stream.Uint8:          dtypes.Uint8,
	stream.Uint16:         dtypes.Uint16,
	stream.Uint32:         dtypes.Uint32,
	stream.Uint64:         dtypes.Uint64,
	stream.Float16:        dtypes.Float16,
	stream.Float32:        dtypes.Float32,
	stream.Float64:        dtypes.Float64,
	stream.ComplexFloat32: dtypes.Complex64,
	stream.ComplexFloat64: dtypes.Complex128,
}

var deviceToStream = func() map[dtypes.DType]stream.DType {
	m := make(map[dtypes.DType]stream.DType, len(streamToDevice))
	for s, d := range streamToDevice {
		m[d] = s
	}
	return m
}()

// Denylist of stream types the device engine never supports, whatever the operation.
var Denylist = []stream.DType{
	stream.Int8,
	stream.ComplexInt8, stream.ComplexInt16, stream.ComplexInt32, stream.ComplexInt64,
	stream.ComplexUint8, stream.ComplexUint16, stream.ComplexUint32, stream.ComplexUint64,
}

// IsDenied returns whether the scalar type of dtype is in the Denylist.
func IsDenied(dtype stream.DType) bool {
	return slices.Contains(Denylist, dtype.Scalar())
}

// ToDeviceType returns the device element type of the stream type. The Dimension of dtype is ignored.
func ToDeviceType(dtype stream.DType) (dtypes.DType, error) {
	deviceType, found := streamToDevice[dtype.Scalar()]
	if !found {
		return dtypes.InvalidDType, errors.Wrapf(ErrUnsupportedType, "stream type %s has no device equivalent", dtype)
	}
	return deviceType, nil
}

// FromDeviceType returns the scalar stream type of the device element type.
func FromDeviceType(dtype dtypes.DType) (stream.DType, error) {
	streamType, found := deviceToStream[dtype]
	if !found {
		return stream.DType{}, errors.Wrapf(ErrUnsupportedType, "device type %s has no stream equivalent", dtype)
	}
	return streamType, nil
}

// Validate that dtype is supported by an operation with the given support matrix.
//
// Types in the Denylist always fail, whatever the matrix. An empty matrix supports nothing.
func Validate(dtype stream.DType, support Support) error {
	if IsDenied(dtype) {
		return errors.Wrapf(ErrUnsupportedType, "device arrays do not support this type: %s", dtype)
	}
	if !support.Any() {
		return errors.Wrapf(ErrUnsupportedType, "%s: operation supports no types", dtype)
	}
	supported := (dtype.IsInt() && !dtype.Complex && support.Int) ||
		(dtype.IsUint() && !dtype.Complex && support.Uint) ||
		(dtype.IsFloat() && support.Float) ||
		(dtype.IsComplexFloat() && support.ComplexFloat)
	if !supported {
		return errors.Wrapf(ErrUnsupportedType, "%s", dtype)
	}
	if _, err := ToDeviceType(dtype); err != nil {
		return err
	}
	return nil
}

// ValidateComplexFloatPair checks that floatType is the component type of complexType:
// "complex_float32" pairs only with "float32".
func ValidateComplexFloatPair(complexType, floatType stream.DType) error {
	if !complexType.IsComplexFloat() || !floatType.IsFloat() {
		return errors.Wrapf(ErrIncompatibleTypes, "expected a complex float and a float type, got %s, %s",
			complexType, floatType)
	}
	if complexType.Component().Name() != floatType.Name() {
		return errors.Wrapf(ErrIncompatibleTypes, "%s, %s", complexType.Component().Name(), floatType.Name())
	}
	return nil
}
