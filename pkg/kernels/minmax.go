// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/flowarray/pkg/core/arrays"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/floats"
)

// ExtremeFunc returns the minimum (or maximum) value of the array, as its Go type, and the flat index of
// its first occurrence. The array is not modified.
type ExtremeFunc func(a *arrays.Array) (value any, index int, err error)

var extremeTable = map[dtypes.DType][2]ExtremeFunc{
	dtypes.Int16:   {extreme[int16](false), extreme[int16](true)},
	dtypes.Int32:   {extreme[int32](false), extreme[int32](true)},
	dtypes.Int64:   {extreme[int64](false), extreme[int64](true)},
	dtypes.Uint8:   {extreme[uint8](false), extreme[uint8](true)},
	dtypes.Uint16:  {extreme[uint16](false), extreme[uint16](true)},
	dtypes.Uint32:  {extreme[uint32](false), extreme[uint32](true)},
	dtypes.Uint64:  {extreme[uint64](false), extreme[uint64](true)},
	dtypes.Float16: {extremeFloat16(false), extremeFloat16(true)},
	dtypes.Float32: {extreme[float32](false), extreme[float32](true)},
	dtypes.Float64: {extremeFloat64(false), extremeFloat64(true)},
}

// MinMax returns the kernel that finds the minimum, or the maximum if findMax is set, of arrays of dtype.
// Complex dtypes are not ordered, hence not supported.
func MinMax(dtype dtypes.DType, findMax bool) (ExtremeFunc, error) {
	fns, found := extremeTable[dtype]
	if !found {
		return nil, unsupported("min/max", dtype)
	}
	if findMax {
		return fns[1], nil
	}
	return fns[0], nil
}

func extreme[T ordered](findMax bool) ExtremeFunc {
	return func(a *arrays.Array) (value any, index int, err error) {
		err = arrays.ConstFlatData(a, func(flat []T) {
			index = extremeIndex(flat, func(x, y T) bool {
				if findMax {
					return x > y
				}
				return x < y
			})
			value = flat[index]
		})
		return
	}
}

// extremeIndex returns the index of the first value v such that no other value w satisfies better(w, v).
func extremeIndex[T any](values []T, better func(x, y T) bool) int {
	best := 0
	for ii := 1; ii < len(values); ii++ {
		if better(values[ii], values[best]) {
			best = ii
		}
	}
	return best
}

func extremeFloat16(findMax bool) ExtremeFunc {
	return func(a *arrays.Array) (value any, index int, err error) {
		err = arrays.ConstFlatData(a, func(flat []float16.Float16) {
			index = extremeIndex(flat, func(x, y float16.Float16) bool {
				if findMax {
					return x.Float32() > y.Float32()
				}
				return x.Float32() < y.Float32()
			})
			value = flat[index]
		})
		return
	}
}

func extremeFloat64(findMax bool) ExtremeFunc {
	return func(a *arrays.Array) (value any, index int, err error) {
		if a.Size() == 0 {
			return nil, 0, errors.New("min/max of an empty array")
		}
		err = arrays.ConstFlatData(a, func(flat []float64) {
			if findMax {
				index = floats.MaxIdx(flat)
			} else {
				index = floats.MinIdx(flat)
			}
			value = flat[index]
		})
		return
	}
}
