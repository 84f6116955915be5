// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import "strconv"

// DType is an enum representing the element type of a device array.
//
// The values follow the numbering of the array engines buffer types (the same numbering used by
// PJRT), even though this engine only implements a subset of them: there is no 8-bit signed
// integer, no boolean and no reduced precision float other than Float16.
type DType int32

const (
	// InvalidDType is the zero value, used to signal an unknown or unsupported type.
	InvalidDType DType = 0

	// Int16 is a signed integral value of 16 bits.
	Int16 DType = 3

	// Int32 is a signed integral value of 32 bits.
	Int32 DType = 4

	// Int64 is a signed integral value of 64 bits.
	Int64 DType = 5

	// Uint8 is an unsigned integral value of 8 bits.
	Uint8 DType = 6

	// Uint16 is an unsigned integral value of 16 bits.
	Uint16 DType = 7

	// Uint32 is an unsigned integral value of 32 bits.
	Uint32 DType = 8

	// Uint64 is an unsigned integral value of 64 bits.
	Uint64 DType = 9

	// Float16 is an IEEE half precision float, stored as github.com/x448/float16.Float16.
	Float16 DType = 10

	// Float32 is an IEEE single precision float.
	Float32 DType = 11

	// Float64 is an IEEE double precision float.
	Float64 DType = 12

	// Complex64 is a pair of Float32 (real, imag), as in Go's complex64.
	Complex64 DType = 14

	// Complex128 is a pair of Float64 (real, imag), as in Go's complex128.
	Complex128 DType = 15
)

// Aliases using the short names of the array engine. Complex types have no alias, since the
// engine names them by the total bit width (c32 is Complex64) which is confusing in Go.
const (
	S16 = Int16
	S32 = Int32
	S64 = Int64
	U8  = Uint8
	U16 = Uint16
	U32 = Uint32
	U64 = Uint64
	F16 = Float16
	F32 = Float32
	F64 = Float64
)

// All lists every valid DType, in enum order.
var All = []DType{Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float16, Float32, Float64, Complex64, Complex128}

var dtypeNames = map[DType]string{
	InvalidDType: "InvalidDType",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if name, found := dtypeNames[dtype]; found {
		return name
	}
	return "DType(" + strconv.Itoa(int(dtype)) + ")"
}

// MapOfNames to their dtypes. It includes also aliases to the various dtypes.
// It is also later initialized to include the lower-case version of the names.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"Int16":        Int16,
	"S16":          Int16,
	"Int32":        Int32,
	"S32":          Int32,
	"Int64":        Int64,
	"S64":          Int64,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"Uint16":       Uint16,
	"U16":          Uint16,
	"Uint32":       Uint32,
	"U32":          Uint32,
	"Uint64":       Uint64,
	"U64":          Uint64,
	"Float16":      Float16,
	"F16":          Float16,
	"Float32":      Float32,
	"F32":          Float32,
	"Float64":      Float64,
	"F64":          Float64,
	"Complex64":    Complex64,
	"Complex128":   Complex128,
}
