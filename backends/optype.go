// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

// OpType is an enum of the kernel families a backend may support.
//
// Kernels themselves live in package github.com/gomlx/flowarray/pkg/kernels, but they check the
// backend Capabilities before being selected for a node.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeScale
	OpTypeFFT
	OpTypeRFFT
	OpTypeMinMax
	OpTypeConstant
	OpTypeAbs
	OpTypeNegate
	OpTypeConj

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)
