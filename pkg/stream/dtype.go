// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Kind is the base kind of stream element types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindUint
	KindFloat
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// DType describes the element type carried by a stream port.
//
// An element is Dimension values of the scalar type described by Kind, Complex and Bits.
// For complex types Bits is the size of each component: "complex_float32" has Bits=32.
//
// DType values are comparable with ==.
type DType struct {
	Kind      Kind
	Complex   bool
	Bits      int
	Dimension int
}

// Predefined scalar stream types.
var (
	Int8    = DType{Kind: KindInt, Bits: 8, Dimension: 1}
	Int16   = DType{Kind: KindInt, Bits: 16, Dimension: 1}
	Int32   = DType{Kind: KindInt, Bits: 32, Dimension: 1}
	Int64   = DType{Kind: KindInt, Bits: 64, Dimension: 1}
	Uint8   = DType{Kind: KindUint, Bits: 8, Dimension: 1}
	Uint16  = DType{Kind: KindUint, Bits: 16, Dimension: 1}
	Uint32  = DType{Kind: KindUint, Bits: 32, Dimension: 1}
	Uint64  = DType{Kind: KindUint, Bits: 64, Dimension: 1}
	Float16 = DType{Kind: KindFloat, Bits: 16, Dimension: 1}
	Float32 = DType{Kind: KindFloat, Bits: 32, Dimension: 1}
	Float64 = DType{Kind: KindFloat, Bits: 64, Dimension: 1}

	ComplexFloat32 = DType{Kind: KindFloat, Complex: true, Bits: 32, Dimension: 1}
	ComplexFloat64 = DType{Kind: KindFloat, Complex: true, Bits: 64, Dimension: 1}

	ComplexInt8   = DType{Kind: KindInt, Complex: true, Bits: 8, Dimension: 1}
	ComplexInt16  = DType{Kind: KindInt, Complex: true, Bits: 16, Dimension: 1}
	ComplexInt32  = DType{Kind: KindInt, Complex: true, Bits: 32, Dimension: 1}
	ComplexInt64  = DType{Kind: KindInt, Complex: true, Bits: 64, Dimension: 1}
	ComplexUint8  = DType{Kind: KindUint, Complex: true, Bits: 8, Dimension: 1}
	ComplexUint16 = DType{Kind: KindUint, Complex: true, Bits: 16, Dimension: 1}
	ComplexUint32 = DType{Kind: KindUint, Complex: true, Bits: 32, Dimension: 1}
	ComplexUint64 = DType{Kind: KindUint, Complex: true, Bits: 64, Dimension: 1}
)

// AllScalar lists every scalar (Dimension == 1) stream type.
var AllScalar = []DType{
	Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float16, Float32, Float64,
	ComplexInt8, ComplexInt16, ComplexInt32, ComplexInt64,
	ComplexUint8, ComplexUint16, ComplexUint32, ComplexUint64,
	ComplexFloat32, ComplexFloat64,
}

// Ok returns whether dtype is a valid stream type.
func (dtype DType) Ok() bool {
	if dtype.Kind == KindInvalid || dtype.Dimension < 1 {
		return false
	}
	switch dtype.Bits {
	case 8, 16, 32, 64:
	default:
		return false
	}
	if dtype.Kind == KindFloat && dtype.Bits == 8 {
		return false
	}
	return !(dtype.Kind == KindFloat && dtype.Complex && dtype.Bits == 16)
}

// Scalar returns the dtype with Dimension 1.
func (dtype DType) Scalar() DType {
	dtype.Dimension = 1
	return dtype
}

// WithDimension returns the dtype grouping dimension scalar values per element.
func (dtype DType) WithDimension(dimension int) DType {
	dtype.Dimension = dimension
	return dtype
}

// Component returns the type of each component of a complex type, or dtype itself otherwise.
func (dtype DType) Component() DType {
	dtype.Complex = false
	return dtype
}

// IsInt returns whether dtype is a signed integer type, complex or not.
func (dtype DType) IsInt() bool { return dtype.Kind == KindInt }

// IsUint returns whether dtype is an unsigned integer type, complex or not.
func (dtype DType) IsUint() bool { return dtype.Kind == KindUint }

// IsInteger returns whether dtype has integer components.
func (dtype DType) IsInteger() bool { return dtype.IsInt() || dtype.IsUint() }

// IsFloat returns whether dtype is a real floating point type.
func (dtype DType) IsFloat() bool { return dtype.Kind == KindFloat && !dtype.Complex }

// IsComplexFloat returns whether dtype is a complex floating point type.
func (dtype DType) IsComplexFloat() bool { return dtype.Kind == KindFloat && dtype.Complex }

// ScalarSize returns the number of bytes of one scalar value: 8 for "complex_float32".
func (dtype DType) ScalarSize() int {
	size := dtype.Bits / 8
	if dtype.Complex {
		size *= 2
	}
	return size
}

// Size returns the number of bytes of one element, including its Dimension.
func (dtype DType) Size() int {
	return dtype.ScalarSize() * dtype.Dimension
}

// Name returns the name of the scalar type, e.g. "int16" or "complex_float32".
func (dtype DType) Name() string {
	var sb strings.Builder
	if dtype.Complex {
		sb.WriteString("complex_")
	}
	sb.WriteString(dtype.Kind.String())
	sb.WriteString(strconv.Itoa(dtype.Bits))
	return sb.String()
}

// String implements fmt.Stringer: it returns the name, followed by "[N]" if Dimension is not 1.
func (dtype DType) String() string {
	if !dtype.Ok() {
		return fmt.Sprintf("InvalidDType(%s, complex=%v, bits=%d, dim=%d)",
			dtype.Kind, dtype.Complex, dtype.Bits, dtype.Dimension)
	}
	if dtype.Dimension == 1 {
		return dtype.Name()
	}
	return fmt.Sprintf("%s[%d]", dtype.Name(), dtype.Dimension)
}

// Parse a dtype name, as returned by DType.String: e.g. "float32", "complex_int16" or "uint8[4]".
func Parse(name string) (DType, error) {
	original := name
	dtype := DType{Dimension: 1}
	if idx := strings.Index(name, "["); idx != -1 && strings.HasSuffix(name, "]") {
		dim, err := strconv.Atoi(name[idx+1 : len(name)-1])
		if err != nil || dim < 1 {
			return DType{}, errors.Errorf("invalid dimension in stream dtype %q", original)
		}
		dtype.Dimension = dim
		name = name[:idx]
	}
	if rest, found := strings.CutPrefix(name, "complex_"); found {
		dtype.Complex = true
		name = rest
	}
	var bits string
	switch {
	case strings.HasPrefix(name, "uint"):
		dtype.Kind, bits = KindUint, name[len("uint"):]
	case strings.HasPrefix(name, "int"):
		dtype.Kind, bits = KindInt, name[len("int"):]
	case strings.HasPrefix(name, "float"):
		dtype.Kind, bits = KindFloat, name[len("float"):]
	default:
		return DType{}, errors.Errorf("unknown stream dtype %q", original)
	}
	var err error
	dtype.Bits, err = strconv.Atoi(bits)
	if err != nil || !dtype.Ok() {
		return DType{}, errors.Errorf("unknown stream dtype %q", original)
	}
	return dtype, nil
}

// Scalar lists the Go types used to store stream values.
type Scalar interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float16.Float16 | float32 | float64 | complex64 | complex128
}

// DTypeOf returns the stream dtype of the Go type T.
func DTypeOf[T Scalar]() DType {
	var t T
	switch any(t).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return ComplexFloat32
	case complex128:
		return ComplexFloat64
	}
	return DType{}
}
