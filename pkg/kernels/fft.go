// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math/bits"

	"github.com/gomlx/flowarray/pkg/core/arrays"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTFunc computes the FFT (or inverse FFT) of each row of a complex array, in place.
//
// The forward transform is multiplied by norm, and the inverse transform by norm/N, where N is the
// number of columns. So with norm=1 the inverse of the forward transform returns the original values.
type FFTFunc func(a *arrays.Array, norm float64) error

var fftTable = map[dtypes.DType][2]FFTFunc{
	dtypes.Complex64:  {complexFFT[complex64](false), complexFFT[complex64](true)},
	dtypes.Complex128: {complexFFT[complex128](false), complexFFT[complex128](true)},
}

// FFT returns the complex FFT kernel for dtype, forward or inverse.
func FFT(dtype dtypes.DType, inverse bool) (FFTFunc, error) {
	fns, found := fftTable[dtype]
	if !found {
		return nil, unsupported("fft", dtype)
	}
	if inverse {
		return fns[1], nil
	}
	return fns[0], nil
}

// IsPowerOfTwo returns whether n is a power of 2. FFTs are most efficient with a power of 2 bins.
func IsPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

func complexFFT[T complexNumber](inverse bool) FFTFunc {
	return func(a *arrays.Array, norm float64) error {
		rows, cols := a.Rows(), a.Cols()
		scale := complex(norm, 0)
		if inverse {
			scale = complex(norm/float64(cols), 0)
		}
		return arrays.MutableFlatData(a, func(flat []T) {
			parallelRows(flat, rows, func(_ int, values []T) {
				// CmplxFFT holds work buffers, so one per row.
				transform := fourier.NewCmplxFFT(cols)
				seq := make([]complex128, cols)
				for ii, v := range values {
					seq[ii] = complex128(v)
				}
				var result []complex128
				if inverse {
					result = transform.Sequence(nil, seq)
				} else {
					result = transform.Coefficients(nil, seq)
				}
				for ii, c := range result {
					values[ii] = T(c * scale)
				}
			})
		})
	}
}

// RFFTFunc computes the real FFT of each row of the array for numBins bins, returning a new array and
// consuming the input.
//
// The forward transform takes numBins real values per row and returns RFFTBins(numBins) complex
// coefficients, multiplied by norm. The inverse transform takes RFFTBins(numBins) complex coefficients
// per row, and returns numBins real values multiplied by norm/numBins. Whether numBins is odd determines
// the length of the inverse result.
type RFFTFunc func(ctx *device.Context, a *arrays.Array, numBins int, norm float64) (*arrays.Array, error)

// RFFTBins returns the number of complex coefficients of the real FFT of numBins values.
func RFFTBins(numBins int) int {
	return numBins/2 + 1
}

type rfftKernel struct {
	fn       RFFTFunc
	outDType dtypes.DType
}

var (
	rfftForwardTable = map[dtypes.DType]rfftKernel{
		dtypes.Float32: {realToComplex[float32, complex64], dtypes.Complex64},
		dtypes.Float64: {realToComplex[float64, complex128], dtypes.Complex128},
	}
	rfftInverseTable = map[dtypes.DType]rfftKernel{
		dtypes.Complex64:  {complexToReal[complex64, float32], dtypes.Float32},
		dtypes.Complex128: {complexToReal[complex128, float64], dtypes.Float64},
	}
)

// RFFT returns the real FFT kernel for the input dtype and the dtype of its output.
// The forward transform takes Float32 or Float64 arrays, and the inverse transform Complex64 or Complex128.
func RFFT(dtype dtypes.DType, inverse bool) (RFFTFunc, dtypes.DType, error) {
	table := rfftForwardTable
	if inverse {
		table = rfftInverseTable
	}
	kernel, found := table[dtype]
	if !found {
		return nil, dtypes.InvalidDType, unsupported("rfft", dtype)
	}
	return kernel.fn, kernel.outDType, nil
}

// resultDimensions returns the dimensions of a per-row result with cols columns, keeping the rank of a.
func resultDimensions(a *arrays.Array, cols int) []int {
	if a.Shape().Rank() <= 1 {
		return []int{cols}
	}
	return []int{a.Rows(), cols}
}

func realToComplex[R float, C complexNumber](ctx *device.Context, a *arrays.Array, numBins int, norm float64) (*arrays.Array, error) {
	rows, cols := a.Rows(), a.Cols()
	if cols != numBins {
		return nil, errors.Errorf("rfft of %d bins requires %d values per row, got array %s", numBins, numBins, a.Shape())
	}
	outCols := RFFTBins(numBins)
	result := make([]C, rows*outCols)
	scale := complex(norm, 0)
	err := arrays.ConstFlatData(a, func(flat []R) {
		parallelRows(result, rows, func(row int, coeffs []C) {
			transform := fourier.NewFFT(numBins)
			seq := make([]float64, numBins)
			for ii, v := range flat[row*cols : (row+1)*cols] {
				seq[ii] = float64(v)
			}
			for ii, c := range transform.Coefficients(nil, seq) {
				coeffs[ii] = C(c * scale)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	dimensions := resultDimensions(a, outCols)
	if err := a.Finalize(); err != nil {
		return nil, err
	}
	return arrays.Wrap(ctx, result, dimensions...)
}

func complexToReal[C complexNumber, R float](ctx *device.Context, a *arrays.Array, numBins int, norm float64) (*arrays.Array, error) {
	rows, cols := a.Rows(), a.Cols()
	if cols != RFFTBins(numBins) {
		return nil, errors.Errorf("inverse rfft of %d bins requires %d coefficients per row, got array %s",
			numBins, RFFTBins(numBins), a.Shape())
	}
	result := make([]R, rows*numBins)
	scale := norm / float64(numBins)
	err := arrays.ConstFlatData(a, func(flat []C) {
		parallelRows(result, rows, func(row int, values []R) {
			transform := fourier.NewFFT(numBins)
			coeffs := make([]complex128, cols)
			for ii, c := range flat[row*cols : (row+1)*cols] {
				coeffs[ii] = complex128(c)
			}
			for ii, v := range transform.Sequence(nil, coeffs) {
				values[ii] = R(v * scale)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	dimensions := resultDimensions(a, numBins)
	if err := a.Finalize(); err != nil {
		return nil, err
	}
	return arrays.Wrap(ctx, result, dimensions...)
}
