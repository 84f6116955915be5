// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"reflect"
	"strconv"

	"github.com/gomlx/flowarray/pkg/core/arrays"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// ConstantFunc creates an array with the given dimensions filled with value, which must already be of the
// dtype's Go type (see ConvertValue).
type ConstantFunc func(ctx *device.Context, value any, dimensions ...int) (*arrays.Array, error)

var constantTable = map[dtypes.DType]ConstantFunc{
	dtypes.Int16:      constant[int16],
	dtypes.Int32:      constant[int32],
	dtypes.Int64:      constant[int64],
	dtypes.Uint8:      constant[uint8],
	dtypes.Uint16:     constant[uint16],
	dtypes.Uint32:     constant[uint32],
	dtypes.Uint64:     constant[uint64],
	dtypes.Float16:    constant[float16.Float16],
	dtypes.Float32:    constant[float32],
	dtypes.Float64:    constant[float64],
	dtypes.Complex64:  constant[complex64],
	dtypes.Complex128: constant[complex128],
}

// Constant returns the constant fill kernel for dtype.
func Constant(dtype dtypes.DType) (ConstantFunc, error) {
	fn, found := constantTable[dtype]
	if !found {
		return nil, unsupported("constant", dtype)
	}
	return fn, nil
}

func constant[T dtypes.Supported](ctx *device.Context, value any, dimensions ...int) (*arrays.Array, error) {
	v, ok := value.(T)
	if !ok {
		var t T
		return nil, errors.Errorf("constant value %v (%T) is not a %T", value, value, t)
	}
	size := 1
	for _, dim := range dimensions {
		size *= dim
	}
	flat := make([]T, size)
	parallelChunks(flat, func(chunk []T) {
		for ii := range chunk {
			chunk[ii] = v
		}
	})
	return arrays.Wrap(ctx, flat, dimensions...)
}

// ConvertValue converts a numeric value (any Go integer, float, complex or float16.Float16, or a string
// with one of those) to the Go type of dtype.
//
// Complex values can only be converted to complex dtypes. Integer conversions truncate.
func ConvertValue(dtype dtypes.DType, value any) (any, error) {
	if !dtype.Ok() {
		return nil, errors.Errorf("cannot convert value to invalid dtype %s", dtype)
	}
	if dtypes.FromAny(value) == dtype {
		return value, nil
	}
	switch v := value.(type) {
	case string:
		return parseValue(dtype, v)
	case float16.Float16:
		value = v.Float32()
	}
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return nil, errors.Errorf("cannot convert nil to %s", dtype)
	}
	isComplex := v.Kind() == reflect.Complex64 || v.Kind() == reflect.Complex128
	isReal := v.CanFloat() || v.CanInt() || v.CanUint()
	switch {
	case dtype.IsComplex() && isComplex:
		return v.Convert(dtype.GoType()).Interface(), nil
	case dtype.IsComplex() && isReal:
		re := v.Convert(reflect.TypeOf(float64(0))).Float()
		return reflect.ValueOf(complex(re, 0)).Convert(dtype.GoType()).Interface(), nil
	case dtype == dtypes.Float16 && isReal:
		return float16.Fromfloat32(float32(v.Convert(reflect.TypeOf(float64(0))).Float())), nil
	case isReal:
		return v.Convert(dtype.GoType()).Interface(), nil
	}
	return nil, errors.Errorf("cannot convert %v (%T) to %s", value, value, dtype)
}

// parseValue parses text as a value of dtype.
func parseValue(dtype dtypes.DType, text string) (any, error) {
	switch {
	case dtype.IsComplex():
		c, err := strconv.ParseComplex(text, 128)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s value %q", dtype, text)
		}
		return ConvertValue(dtype, c)
	case dtype.IsInt():
		i, err := strconv.ParseInt(text, 0, dtype.Bits())
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s value %q", dtype, text)
		}
		return ConvertValue(dtype, i)
	case dtype.IsUnsigned():
		u, err := strconv.ParseUint(text, 0, dtype.Bits())
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s value %q", dtype, text)
		}
		return ConvertValue(dtype, u)
	default:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s value %q", dtype, text)
		}
		return ConvertValue(dtype, f)
	}
}
