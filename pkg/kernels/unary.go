// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math/cmplx"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/core/arrays"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// UnaryFunc applies an element-wise function to the array.
//
// It consumes the input array, and returns the result, which is the input array itself when the function
// can be computed in place.
type UnaryFunc func(ctx *device.Context, a *arrays.Array) (*arrays.Array, error)

// unaryKernel is one entry of the unary dispatch tables.
type unaryKernel struct {
	fn       UnaryFunc
	outDType dtypes.DType // InvalidDType means same as input.
}

const float16SignBit = 0x8000

var unaryTables = map[backends.OpType]map[dtypes.DType]unaryKernel{
	backends.OpTypeAbs: {
		dtypes.Int16:      {fn: inPlace(absSigned[int16])},
		dtypes.Int32:      {fn: inPlace(absSigned[int32])},
		dtypes.Int64:      {fn: inPlace(absSigned[int64])},
		dtypes.Uint8:      {fn: identity},
		dtypes.Uint16:     {fn: identity},
		dtypes.Uint32:     {fn: identity},
		dtypes.Uint64:     {fn: identity},
		dtypes.Float16:    {fn: inPlace(mapFloat16(func(v uint16) uint16 { return v &^ float16SignBit }))},
		dtypes.Float32:    {fn: inPlace(absSigned[float32])},
		dtypes.Float64:    {fn: inPlace(absSigned[float64])},
		dtypes.Complex64:  {fn: absComplex[complex64, float32], outDType: dtypes.Float32},
		dtypes.Complex128: {fn: absComplex[complex128, float64], outDType: dtypes.Float64},
	},
	backends.OpTypeNegate: {
		dtypes.Int16:      {fn: inPlace(negate[int16])},
		dtypes.Int32:      {fn: inPlace(negate[int32])},
		dtypes.Int64:      {fn: inPlace(negate[int64])},
		dtypes.Float16:    {fn: inPlace(mapFloat16(func(v uint16) uint16 { return v ^ float16SignBit }))},
		dtypes.Float32:    {fn: inPlace(negate[float32])},
		dtypes.Float64:    {fn: inPlace(negate[float64])},
		dtypes.Complex64:  {fn: inPlace(negate[complex64])},
		dtypes.Complex128: {fn: inPlace(negate[complex128])},
	},
	backends.OpTypeConj: {
		dtypes.Complex64:  {fn: inPlace(conj[complex64])},
		dtypes.Complex128: {fn: inPlace(conj[complex128])},
	},
}

// Unary returns the element-wise kernel op (one of backends.OpTypeAbs, OpTypeNegate or OpTypeConj) for
// the input dtype, and the dtype of its output.
func Unary(op backends.OpType, dtype dtypes.DType) (UnaryFunc, dtypes.DType, error) {
	table, found := unaryTables[op]
	if !found {
		return nil, dtypes.InvalidDType, errors.Errorf("%s is not an element-wise unary operation", op)
	}
	kernel, found := table[dtype]
	if !found {
		return nil, dtypes.InvalidDType, unsupported(op.String(), dtype)
	}
	outDType := kernel.outDType
	if outDType == dtypes.InvalidDType {
		outDType = dtype
	}
	return kernel.fn, outDType, nil
}

// inPlace converts an in-place kernel into a UnaryFunc.
func inPlace(fn func(a *arrays.Array) error) UnaryFunc {
	return func(_ *device.Context, a *arrays.Array) (*arrays.Array, error) {
		if err := fn(a); err != nil {
			return nil, err
		}
		return a, nil
	}
}

func identity(_ *device.Context, a *arrays.Array) (*arrays.Array, error) {
	return a, nil
}

// mapInPlace returns an in-place kernel applying fn to every value.
func mapInPlace[T dtypes.Supported](fn func(v T) T) func(a *arrays.Array) error {
	return func(a *arrays.Array) error {
		return arrays.MutableFlatData(a, func(flat []T) {
			parallelChunks(flat, func(chunk []T) {
				for ii, v := range chunk {
					chunk[ii] = fn(v)
				}
			})
		})
	}
}

// mapFloat16 applies fn to the bits of every float16 value.
func mapFloat16(fn func(bits uint16) uint16) func(a *arrays.Array) error {
	return mapInPlace(func(v float16.Float16) float16.Float16 {
		return float16.Frombits(fn(v.Bits()))
	})
}

func absSigned[T signed | float](a *arrays.Array) error {
	return mapInPlace(func(v T) T {
		if v < 0 {
			return -v
		}
		return v
	})(a)
}

func negate[T signed | float | complexNumber](a *arrays.Array) error {
	return mapInPlace(func(v T) T { return -v })(a)
}

func conj[T complexNumber](a *arrays.Array) error {
	return mapInPlace(func(v T) T {
		return T(cmplx.Conj(complex128(v)))
	})(a)
}

// absComplex computes the magnitude of complex values into a new array of the real dtype R.
func absComplex[C complexNumber, R float](ctx *device.Context, a *arrays.Array) (*arrays.Array, error) {
	var magnitudes []R
	err := arrays.ConstFlatData(a, func(flat []C) {
		magnitudes = make([]R, len(flat))
		parallelRanges(len(flat), func(start, end int) {
			for ii := start; ii < end; ii++ {
				magnitudes[ii] = R(cmplx.Abs(complex128(flat[ii])))
			}
		})
	})
	if err != nil {
		return nil, err
	}
	dimensions := a.Shape().Dimensions
	if err := a.Finalize(); err != nil {
		return nil, err
	}
	return arrays.Wrap(ctx, magnitudes, dimensions...)
}
