// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes includes the DType enum for the element types supported by the device array engine.
//
// It includes converters to/from Go native types (and reflect.Type), and some constraint interfaces to be
// used with generics (Supported, Number, Float, Complex).
package dtypes

import (
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// panicf panics with the formatted description.
//
// It is only used for "bugs in the code" -- when parameters are invalid.
func panicf(format string, args ...any) {
	panic(errors.Errorf(format, args...))
}

func init() {
	if strconv.IntSize != 32 && strconv.IntSize != 64 {
		panicf("cannot use int of %d bits -- only platforms with int32 or int64 are supported", strconv.IntSize)
	}

	// Add a mapping to the lower-case version of dtypes.
	keys := slices.Collect(maps.Keys(MapOfNames))
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if lowerKey == key {
			continue
		}
		if _, found := MapOfNames[lowerKey]; found {
			continue
		}
		MapOfNames[lowerKey] = MapOfNames[key]
	}
}

// Supported lists the Go types that map to a DType.
type Supported interface {
	int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float16.Float16 | float32 | float64 | complex64 | complex128
}

// Number lists the Go types that support arithmetic operators.
type Number interface {
	int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | complex64 | complex128
}

// NumberNotComplex lists the ordered numeric Go types.
type NumberNotComplex interface {
	int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Float lists the Go float types with native arithmetic.
type Float interface {
	float32 | float64
}

// Complex lists the Go complex types.
type Complex interface {
	complex64 | complex128
}

// FromGenericsType returns the DType enum for the given type that this package knows about.
func FromGenericsType[T Supported]() DType {
	var t T
	switch (any(t)).(type) {
	case float64:
		return Float64
	case float32:
		return Float32
	case float16.Float16:
		return Float16
	case int64:
		return Int64
	case int32:
		return Int32
	case int16:
		return Int16
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case complex64:
		return Complex64
	case complex128:
		return Complex128
	}
	return InvalidDType
}

// FromGoType returns the DType for the given "reflect.Type".
// It returns InvalidDType for types without a device equivalent (int8, bool, ...).
func FromGoType(t reflect.Type) DType {
	if t == nil {
		return InvalidDType
	}
	if t == float16Type {
		return Float16
	}
	switch t.Kind() {
	case reflect.Int:
		if strconv.IntSize == 32 {
			return Int32
		}
		return Int64
	case reflect.Int64:
		return Int64
	case reflect.Int32:
		return Int32
	case reflect.Int16:
		return Int16

	case reflect.Uint64:
		return Uint64
	case reflect.Uint32:
		return Uint32
	case reflect.Uint16:
		return Uint16
	case reflect.Uint8:
		return Uint8

	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64

	case reflect.Complex64:
		return Complex64
	case reflect.Complex128:
		return Complex128
	default:
		return InvalidDType
	}
}

// FromAny introspects the underlying type of any and returns the corresponding DType.
// Non-scalar types, or unsupported types return an InvalidDType.
func FromAny(value any) DType {
	return FromGoType(reflect.TypeOf(value))
}

// FromFlat returns the DType of the elements of a flat slice, e.g. []float32 -> Float32.
// It returns InvalidDType if flat is not a slice of a supported type.
func FromFlat(flat any) DType {
	t := reflect.TypeOf(flat)
	if t == nil || t.Kind() != reflect.Slice {
		return InvalidDType
	}
	return FromGoType(t.Elem())
}

// Ok returns whether the dtype is one of the valid values.
func (dtype DType) Ok() bool {
	_, found := dtypeNames[dtype]
	return found && dtype != InvalidDType
}

// Size returns the number of bytes for the given DType.
func (dtype DType) Size() int {
	return int(dtype.GoType().Size())
}

// Bits returns the number of bits for the given DType.
func (dtype DType) Bits() int {
	return dtype.Size() * 8
}

// Memory returns the number of bytes for the given DType.
// It's an alias to Size, converted to uintptr.
func (dtype DType) Memory() uintptr {
	return uintptr(dtype.Size())
}

// Pre-generate constant reflect.TypeOf for convenience.
var (
	float16Type = reflect.TypeOf(float16.Float16(0))
	goTypes     = map[DType]reflect.Type{
		Int16:      reflect.TypeOf(int16(0)),
		Int32:      reflect.TypeOf(int32(0)),
		Int64:      reflect.TypeOf(int64(0)),
		Uint8:      reflect.TypeOf(uint8(0)),
		Uint16:     reflect.TypeOf(uint16(0)),
		Uint32:     reflect.TypeOf(uint32(0)),
		Uint64:     reflect.TypeOf(uint64(0)),
		Float16:    float16Type,
		Float32:    reflect.TypeOf(float32(0)),
		Float64:    reflect.TypeOf(float64(0)),
		Complex64:  reflect.TypeOf(complex64(0)),
		Complex128: reflect.TypeOf(complex128(0)),
	}
)

// GoType returns the Go `reflect.Type` corresponding to the DType.
// It panics for InvalidDType or unknown values.
func (dtype DType) GoType() reflect.Type {
	t, found := goTypes[dtype]
	if !found {
		panicf("unknown dtype %q (%d) in DType.GoType", dtype, dtype)
	}
	return t
}

// GoStr converts dtype to the corresponding Go type and convert that to string.
func (dtype DType) GoStr() string {
	return dtype.GoType().Name()
}

// MakeFlat allocates a flat slice ([]T for the dtype's Go type) with the given length.
func (dtype DType) MakeFlat(length int) any {
	return reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), length, length).Interface()
}

// IsFloat returns whether dtype is a float. It returns false for complex numbers.
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == Float32 || dtype == Float64
}

// IsComplex returns whether dtype is a complex number type.
func (dtype DType) IsComplex() bool {
	return dtype == Complex64 || dtype == Complex128
}

// IsInt returns whether dtype is a signed integer type.
func (dtype DType) IsInt() bool {
	return dtype == Int16 || dtype == Int32 || dtype == Int64
}

// IsUnsigned returns whether dtype is an unsigned integer type.
func (dtype DType) IsUnsigned() bool {
	return dtype == Uint8 || dtype == Uint16 || dtype == Uint32 || dtype == Uint64
}

// RealDType returns the real component of complex dtypes.
// For float dtypes, it returns itself.
//
// It returns InvalidDType for other non-(complex or float) dtypes.
func (dtype DType) RealDType() DType {
	if dtype.IsFloat() {
		return dtype
	}
	switch dtype {
	case Complex64:
		return Float32
	case Complex128:
		return Float64
	default:
		return InvalidDType
	}
}

// ComplexDType returns the complex type whose components are dtype: Float32 -> Complex64,
// Float64 -> Complex128. Complex types return themselves, anything else returns InvalidDType.
func (dtype DType) ComplexDType() DType {
	switch dtype {
	case Float32, Complex64:
		return Complex64
	case Float64, Complex128:
		return Complex128
	default:
		return InvalidDType
	}
}
