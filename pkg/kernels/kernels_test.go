// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"testing"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/core/arrays"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/device/devicetest"
	"github.com/gomlx/flowarray/pkg/typebridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func fromFlat(t *testing.T, ctx *device.Context, flat any, dimensions ...int) *arrays.Array {
	t.Helper()
	a, err := arrays.FromFlat(ctx, flat, dimensions...)
	require.NoError(t, err)
	return a
}

func TestCheckSupported(t *testing.T) {
	ctx := devicetest.NewContext(t)
	require.NoError(t, CheckSupported(ctx, backends.OpTypeFFT, dtypes.Complex64))
	require.ErrorIs(t, CheckSupported(ctx, backends.OpTypeInvalid, dtypes.Complex64), typebridge.ErrUnsupportedType)
	assert.True(t, IsPowerOfTwo(1024))
	assert.False(t, IsPowerOfTwo(1000))
	assert.False(t, IsPowerOfTwo(0))
}

func TestScale(t *testing.T) {
	ctx := devicetest.NewContext(t)

	scale, err := Scale(dtypes.Float32)
	require.NoError(t, err)
	a := fromFlat(t, ctx, []float32{1, 2, 3})
	require.NoError(t, scale(a, 2))
	values, err := arrays.CopyFlatData[float32](a)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, values)

	scale, err = Scale(dtypes.Int16)
	require.NoError(t, err)
	a = fromFlat(t, ctx, []int16{1, -3, 4})
	require.NoError(t, scale(a, 2.5))
	ints, err := arrays.CopyFlatData[int16](a)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, -8, 10}, ints)

	scale, err = Scale(dtypes.Complex64)
	require.NoError(t, err)
	a = fromFlat(t, ctx, []complex64{1 + 2i, -1i})
	require.NoError(t, scale(a, 2))
	complexes, err := arrays.CopyFlatData[complex64](a)
	require.NoError(t, err)
	assert.Equal(t, []complex64{2 + 4i, -2i}, complexes)

	scale, err = Scale(dtypes.Float16)
	require.NoError(t, err)
	a = fromFlat(t, ctx, []float16.Float16{float16.Fromfloat32(1.5)})
	require.NoError(t, scale(a, -2))
	halves, err := arrays.CopyFlatData[float16.Float16](a)
	require.NoError(t, err)
	assert.Equal(t, float32(-3), halves[0].Float32())

	_, err = Scale(dtypes.InvalidDType)
	require.ErrorIs(t, err, typebridge.ErrUnsupportedType)
}

func TestScaleParallel(t *testing.T) {
	ctx := devicetest.NewContext(t)
	const n = 50_000
	flat := make([]float64, n)
	for ii := range flat {
		flat[ii] = float64(ii)
	}
	scale, err := Scale(dtypes.Float64)
	require.NoError(t, err)
	a := fromFlat(t, ctx, flat)
	require.NoError(t, scale(a, 0.5))
	values, err := arrays.CopyFlatData[float64](a)
	require.NoError(t, err)
	for ii, v := range values {
		require.Equal(t, float64(ii)*0.5, v, "index %d", ii)
	}
}

var (
	fftPrimes = []complex64{
		2 + 3i, 5 + 7i, 11 + 13i, 17 + 19i, 23 + 29i, 31 + 37i, 41 + 43i, 47 + 53i,
		59 + 61i, 67 + 71i, 73 + 79i, 83 + 89i, 97 + 101i, 103 + 107i, 109 + 113i, 127 + 131i,
		137 + 139i, 149 + 151i, 157 + 163i, 167 + 173i, 179 + 181i, 191 + 193i, 197 + 199i, 211 + 223i,
		227 + 229i, 233 + 239i, 241 + 251i, 257 + 263i, 269 + 271i, 277 + 281i, 283 + 293i, 307 + 311i,
	}
	fftPrimesCoefficients = []complex64{
		complex(4377.0, 4516.0),
		complex(-1706.1268310546875, 1638.4256591796875),
		complex(-915.2083740234375, 660.69427490234375),
		complex(-660.370361328125, 381.59600830078125),
		complex(-499.96044921875, 238.41630554199219),
		complex(-462.26748657226562, 152.88948059082031),
		complex(-377.98440551757812, 77.5928955078125),
		complex(-346.85821533203125, 47.152004241943359),
		complex(-295.0, 20.0),
		complex(-286.33609008789062, -22.257017135620117),
		complex(-271.52999877929688, -33.081821441650391),
		complex(-224.6358642578125, -67.019538879394531),
		complex(-244.24473571777344, -91.524826049804688),
		complex(-203.09068298339844, -108.54627227783203),
		complex(-198.45195007324219, -115.90768432617188),
		complex(-182.97744750976562, -128.12318420410156),
		complex(-167.0, -180.0),
		complex(-130.33688354492188, -173.83778381347656),
		complex(-141.19784545898438, -190.28807067871094),
		complex(-111.09677124023438, -214.48896789550781),
		complex(-70.039543151855469, -242.41630554199219),
		complex(-68.960540771484375, -228.30015563964844),
		complex(-53.049201965332031, -291.47097778320312),
		complex(-28.695289611816406, -317.64553833007812),
		complex(57.0, -300.0),
		complex(45.301143646240234, -335.69509887695312),
		complex(91.936195373535156, -373.32437133789062),
		complex(172.09465026855469, -439.275146484375),
		complex(242.24473571777344, -504.47515869140625),
		complex(387.81732177734375, -666.6788330078125),
		complex(689.48553466796875, -918.2142333984375),
		complex(1646.539306640625, -1694.1956787109375),
	}
)

func requireComplexInDelta[T complex64 | complex128](t *testing.T, want, got []T, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for ii := range want {
		require.InDelta(t, real(complex128(want[ii])), real(complex128(got[ii])), delta, "real part of element %d", ii)
		require.InDelta(t, imag(complex128(want[ii])), imag(complex128(got[ii])), delta, "imaginary part of element %d", ii)
	}
}

func TestFFT(t *testing.T) {
	ctx := devicetest.NewContext(t)
	forward, err := FFT(dtypes.Complex64, false)
	require.NoError(t, err)
	inverse, err := FFT(dtypes.Complex64, true)
	require.NoError(t, err)

	a := fromFlat(t, ctx, fftPrimes)
	require.NoError(t, forward(a, 1.0))
	coefficients, err := arrays.CopyFlatData[complex64](a)
	require.NoError(t, err)
	requireComplexInDelta(t, fftPrimesCoefficients, coefficients, 1e-2)

	require.NoError(t, inverse(a, 1.0))
	values, err := arrays.CopyFlatData[complex64](a)
	require.NoError(t, err)
	requireComplexInDelta(t, fftPrimes, values, 1e-2)

	// Normalization factor.
	a = fromFlat(t, ctx, fftPrimes)
	require.NoError(t, forward(a, 0.5))
	coefficients, err = arrays.CopyFlatData[complex64](a)
	require.NoError(t, err)
	assert.InDelta(t, 4377.0/2, real(coefficients[0]), 1e-2)

	_, err = FFT(dtypes.Float32, false)
	require.ErrorIs(t, err, typebridge.ErrUnsupportedType)
}

func TestFFTBatched(t *testing.T) {
	ctx := devicetest.NewContext(t)
	forward, err := FFT(dtypes.Complex128, false)
	require.NoError(t, err)

	// Row 0: impulse, row 1: constant.
	a := fromFlat(t, ctx, []complex128{1, 0, 0, 0, 1, 1, 1, 1}, 2, 4)
	require.NoError(t, forward(a, 1.0))
	got, err := arrays.CopyFlatData[complex128](a)
	require.NoError(t, err)
	requireComplexInDelta(t, []complex128{1, 1, 1, 1, 4, 0, 0, 0}, got, 1e-9)
}

func TestRFFT(t *testing.T) {
	ctx := devicetest.NewContext(t)
	forward, outDType, err := RFFT(dtypes.Float64, false)
	require.NoError(t, err)
	assert.Equal(t, dtypes.Complex128, outDType)
	inverse, outDType, err := RFFT(dtypes.Complex128, true)
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float64, outDType)
	assert.Equal(t, 3, RFFTBins(4))
	assert.Equal(t, 3, RFFTBins(5))

	coefficients, err := forward(ctx, fromFlat(t, ctx, []float64{1, 2, 3, 4}), 4, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, coefficients.Shape().Dimensions)
	got, err := arrays.CopyFlatData[complex128](coefficients)
	require.NoError(t, err)
	requireComplexInDelta(t, []complex128{10, -2 + 2i, -2}, got, 1e-9)

	values, err := inverse(ctx, coefficients, 4, 1.0)
	require.NoError(t, err)
	assert.True(t, coefficients.IsFinalized())
	realValues, err := arrays.CopyFlatData[float64](values)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3, 4}, realValues, 1e-9)

	// Odd number of bins, batched.
	a := fromFlat(t, ctx, []float32{1, 2, 3, 4, 5, 5, 4, 3, 2, 1}, 2, 5)
	forward32, _, err := RFFT(dtypes.Float32, false)
	require.NoError(t, err)
	inverse32, _, err := RFFT(dtypes.Complex64, true)
	require.NoError(t, err)
	coefficients, err = forward32(ctx, a, 5, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, coefficients.Shape().Dimensions)
	values, err = inverse32(ctx, coefficients, 5, 1.0)
	require.NoError(t, err)
	floatValues, err := arrays.CopyFlatData[float32](values)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, 2, 3, 4, 5, 5, 4, 3, 2, 1}, floatValues, 1e-4)

	// Wrong number of values.
	_, err = forward(ctx, fromFlat(t, ctx, []float64{1, 2, 3}), 4, 1.0)
	require.Error(t, err)
	_, _, err = RFFT(dtypes.Complex64, false)
	require.ErrorIs(t, err, typebridge.ErrUnsupportedType)
}

func TestMinMax(t *testing.T) {
	ctx := devicetest.NewContext(t)
	for _, tc := range []struct {
		dtype            dtypes.DType
		flat             any
		minValue, maxVal any
		minIdx, maxIdx   int
	}{
		{dtypes.Float32, []float32{3, 1, 4, 1, 5}, float32(1), float32(5), 1, 4},
		{dtypes.Float64, []float64{3, 1, 4, 1, 5, 9, 2, 6}, 1.0, 9.0, 1, 5},
		{dtypes.Int16, []int16{-3, 7, 7, -3}, int16(-3), int16(7), 0, 1},
		{dtypes.Uint8, []uint8{9}, uint8(9), uint8(9), 0, 0},
		{dtypes.Float16, []float16.Float16{float16.Fromfloat32(0.5), float16.Fromfloat32(-2), float16.Fromfloat32(3)},
			float16.Fromfloat32(-2), float16.Fromfloat32(3), 1, 2},
	} {
		a := fromFlat(t, ctx, tc.flat)
		minFn, err := MinMax(tc.dtype, false)
		require.NoError(t, err)
		value, index, err := minFn(a)
		require.NoError(t, err)
		assert.Equal(t, tc.minValue, value, "min of %s", tc.dtype)
		assert.Equal(t, tc.minIdx, index, "min index of %s", tc.dtype)

		maxFn, err := MinMax(tc.dtype, true)
		require.NoError(t, err)
		value, index, err = maxFn(a)
		require.NoError(t, err)
		assert.Equal(t, tc.maxVal, value, "max of %s", tc.dtype)
		assert.Equal(t, tc.maxIdx, index, "max index of %s", tc.dtype)
	}
	_, err := MinMax(dtypes.Complex64, false)
	require.ErrorIs(t, err, typebridge.ErrUnsupportedType)
}

func TestConstant(t *testing.T) {
	ctx := devicetest.NewContext(t)
	fill, err := Constant(dtypes.Complex64)
	require.NoError(t, err)
	value, err := ConvertValue(dtypes.Complex64, 2.5)
	require.NoError(t, err)
	a, err := fill(ctx, value, 3)
	require.NoError(t, err)
	values, err := arrays.CopyFlatData[complex64](a)
	require.NoError(t, err)
	assert.Equal(t, []complex64{2.5, 2.5, 2.5}, values)

	_, err = fill(ctx, float32(1), 3)
	require.Error(t, err, "values must be converted first")

	for _, tc := range []struct {
		dtype dtypes.DType
		in    any
		want  any
	}{
		{dtypes.Int32, "3", int32(3)},
		{dtypes.Int16, 7.9, int16(7)},
		{dtypes.Uint8, int64(200), uint8(200)},
		{dtypes.Float64, float32(0.5), 0.5},
		{dtypes.Float16, 1.5, float16.Fromfloat32(1.5)},
		{dtypes.Float32, float16.Fromfloat32(2), float32(2)},
		{dtypes.Complex128, "1+2i", complex(1, 2)},
		{dtypes.Complex128, complex64(3 - 1i), complex128(3 - 1i)},
	} {
		got, err := ConvertValue(tc.dtype, tc.in)
		require.NoError(t, err, "converting %v to %s", tc.in, tc.dtype)
		assert.Equal(t, tc.want, got, "converting %v to %s", tc.in, tc.dtype)
	}
	_, err = ConvertValue(dtypes.Float32, 1+2i)
	require.Error(t, err)
	_, err = ConvertValue(dtypes.Int32, "x")
	require.Error(t, err)
	_, err = ConvertValue(dtypes.Float32, nil)
	require.Error(t, err)
}

func TestUnary(t *testing.T) {
	ctx := devicetest.NewContext(t)
	abs, outDType, err := Unary(backends.OpTypeAbs, dtypes.Complex64)
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float32, outDType)
	a := fromFlat(t, ctx, []complex64{3 + 4i, -1}, 1, 2)
	result, err := abs(ctx, a)
	require.NoError(t, err)
	assert.True(t, a.IsFinalized())
	assert.Equal(t, []int{1, 2}, result.Shape().Dimensions)
	magnitudes, err := arrays.CopyFlatData[float32](result)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, magnitudes)

	negate, outDType, err := Unary(backends.OpTypeNegate, dtypes.Float16)
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float16, outDType)
	a = fromFlat(t, ctx, []float16.Float16{float16.Fromfloat32(1.5)})
	result, err = negate(ctx, a)
	require.NoError(t, err)
	assert.Same(t, a, result, "computed in place")
	halves, err := arrays.CopyFlatData[float16.Float16](result)
	require.NoError(t, err)
	assert.Equal(t, float32(-1.5), halves[0].Float32())

	conj, _, err := Unary(backends.OpTypeConj, dtypes.Complex128)
	require.NoError(t, err)
	result, err = conj(ctx, fromFlat(t, ctx, []complex128{1 + 2i}))
	require.NoError(t, err)
	complexes, err := arrays.CopyFlatData[complex128](result)
	require.NoError(t, err)
	assert.Equal(t, []complex128{1 - 2i}, complexes)

	abs, _, err = Unary(backends.OpTypeAbs, dtypes.Int32)
	require.NoError(t, err)
	result, err = abs(ctx, fromFlat(t, ctx, []int32{-4, 2}))
	require.NoError(t, err)
	ints, err := arrays.CopyFlatData[int32](result)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 2}, ints)

	_, _, err = Unary(backends.OpTypeNegate, dtypes.Uint8)
	require.ErrorIs(t, err, typebridge.ErrUnsupportedType)
	_, _, err = Unary(backends.OpTypeFFT, dtypes.Float32)
	require.Error(t, err)
}
