// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/flowarray/pkg/core/arrays"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/x448/float16"
)

// ScaleFunc multiplies every value of the array by factor, in place.
//
// Integer results are rounded to the nearest integer.
type ScaleFunc func(a *arrays.Array, factor float64) error

var scaleTable = map[dtypes.DType]ScaleFunc{
	dtypes.Int16:      scaleInteger[int16],
	dtypes.Int32:      scaleInteger[int32],
	dtypes.Int64:      scaleInteger[int64],
	dtypes.Uint8:      scaleInteger[uint8],
	dtypes.Uint16:     scaleInteger[uint16],
	dtypes.Uint32:     scaleInteger[uint32],
	dtypes.Uint64:     scaleInteger[uint64],
	dtypes.Float16:    scaleFloat16,
	dtypes.Float32:    scaleFloat[float32],
	dtypes.Float64:    scaleFloat[float64],
	dtypes.Complex64:  scaleComplex[complex64],
	dtypes.Complex128: scaleComplex[complex128],
}

// Scale returns the scale kernel for dtype.
func Scale(dtype dtypes.DType) (ScaleFunc, error) {
	fn, found := scaleTable[dtype]
	if !found {
		return nil, unsupported("scale", dtype)
	}
	return fn, nil
}

func scaleInteger[T integer](a *arrays.Array, factor float64) error {
	return arrays.MutableFlatData(a, func(flat []T) {
		parallelChunks(flat, func(chunk []T) {
			for ii, v := range chunk {
				chunk[ii] = T(math.Round(float64(v) * factor))
			}
		})
	})
}

func scaleFloat[T float](a *arrays.Array, factor float64) error {
	f := T(factor)
	return arrays.MutableFlatData(a, func(flat []T) {
		parallelChunks(flat, func(chunk []T) {
			for ii, v := range chunk {
				chunk[ii] = v * f
			}
		})
	})
}

func scaleFloat16(a *arrays.Array, factor float64) error {
	f := float32(factor)
	return arrays.MutableFlatData(a, func(flat []float16.Float16) {
		parallelChunks(flat, func(chunk []float16.Float16) {
			for ii, v := range chunk {
				chunk[ii] = float16.Fromfloat32(v.Float32() * f)
			}
		})
	})
}

func scaleComplex[T complexNumber](a *arrays.Array, factor float64) error {
	f := T(complex(factor, 0))
	return arrays.MutableFlatData(a, func(flat []T) {
		parallelChunks(flat, func(chunk []T) {
			for ii, v := range chunk {
				chunk[ii] = v * f
			}
		})
	})
}
