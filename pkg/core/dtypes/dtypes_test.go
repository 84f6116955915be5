// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestMapOfNames(t *testing.T) {
	if MapOfNames["Float16"] != Float16 {
		t.Fatalf("expected MapOfNames[\"Float16\"] to be Float16, got %v", MapOfNames["Float16"])
	}
	if MapOfNames["float16"] != Float16 {
		t.Fatalf("expected MapOfNames[\"float16\"] to be Float16, got %v", MapOfNames["float16"])
	}
	if MapOfNames["f16"] != Float16 {
		t.Fatalf("expected MapOfNames[\"f16\"] to be Float16, got %v", MapOfNames["f16"])
	}
	if MapOfNames["complex64"] != Complex64 {
		t.Fatalf("expected MapOfNames[\"complex64\"] to be Complex64, got %v", MapOfNames["complex64"])
	}
	_, found := MapOfNames["Int8"]
	assert.False(t, found, "Int8 is not a device type")
}

func TestFromAny(t *testing.T) {
	assert.Equal(t, Int64, FromAny(int64(7)))
	assert.Equal(t, Float32, FromAny(float32(13)))
	assert.Equal(t, Float16, FromAny(float16.Fromfloat32(1)))
	assert.Equal(t, Complex128, FromAny(complex(1.0, 2.0)))
	assert.Equal(t, InvalidDType, FromAny(int8(1)))
	assert.Equal(t, InvalidDType, FromAny(true))
	assert.Equal(t, InvalidDType, FromAny(nil))
}

func TestFromFlat(t *testing.T) {
	assert.Equal(t, Uint16, FromFlat([]uint16{1, 2}))
	assert.Equal(t, Complex64, FromFlat([]complex64{}))
	assert.Equal(t, InvalidDType, FromFlat(float32(1)))
	assert.Equal(t, InvalidDType, FromFlat([]int8{1}))
}

func TestGenericsRoundTrip(t *testing.T) {
	for _, dtype := range All {
		assert.Equal(t, dtype, FromGoType(dtype.GoType()), "dtype %s", dtype)
	}
	assert.Equal(t, Uint8, FromGenericsType[uint8]())
	assert.Equal(t, Float16, FromGenericsType[float16.Float16]())
}

func TestSize(t *testing.T) {
	assert.Equal(t, 2, Int16.Size())
	assert.Equal(t, 2, Float16.Size())
	assert.Equal(t, 8, Complex64.Size())
	assert.Equal(t, 16, Complex128.Size())
	assert.Equal(t, 64, Float64.Bits())
	require.Panics(t, func() { _ = InvalidDType.Size() })
}

func TestMakeFlat(t *testing.T) {
	flat := Complex64.MakeFlat(3)
	require.IsType(t, []complex64{}, flat)
	assert.Len(t, flat.([]complex64), 3)
	assert.Equal(t, reflect.Slice, reflect.TypeOf(Uint32.MakeFlat(0)).Kind())
}

func TestClassification(t *testing.T) {
	assert.True(t, Float16.IsFloat())
	assert.False(t, Complex64.IsFloat())
	assert.True(t, Complex128.IsComplex())
	assert.True(t, Int32.IsInt())
	assert.False(t, Uint32.IsInt())
	assert.True(t, Uint64.IsUnsigned())
	assert.Equal(t, Float32, Complex64.RealDType())
	assert.Equal(t, Float64, Float64.RealDType())
	assert.Equal(t, InvalidDType, Int32.RealDType())
	assert.Equal(t, Complex128, Float64.ComplexDType())
	assert.Equal(t, InvalidDType, Uint8.ComplexDType())
	assert.Equal(t, "Complex64", Complex64.String())
	assert.Equal(t, "DType(99)", DType(99).String())
	assert.False(t, InvalidDType.Ok())
	assert.True(t, Uint8.Ok())
}
