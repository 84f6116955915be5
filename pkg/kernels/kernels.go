// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels implements the numeric kernels invoked by the processing nodes on device arrays:
// scale, FFT/IFFT, real FFT, min/max, constant fill and element-wise unary functions.
//
// Kernels are selected once, at node setup, from dispatch tables keyed by the array dtype (e.g. Scale,
// FFT, MinMax), so the per-invocation path doesn't switch on types. Selecting a kernel for an unsupported
// dtype returns an error wrapping typebridge.ErrUnsupportedType.
//
// Kernels run on the host memory of the array (see arrays.MutableFlatData), and split the work across
// rows (channels) or chunks of values using a workerspool.Pool.
package kernels

import (
	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/internal/workerspool"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/typebridge"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Pool used by the kernels to split work. It defaults to runtime.NumCPU() workers.
//
// Set its parallelism before running any node, e.g. Pool.SetMaxParallelism(0) disables parallelism.
var Pool = workerspool.New()

// MinChunkSize is the minimum number of values processed by one worker in element-wise kernels.
var MinChunkSize = 4096

// Constraints combining the dtypes supported by arrays and the Go arithmetic classes.
type (
	integer interface {
		dtypes.Supported
		constraints.Integer
	}

	signed interface {
		dtypes.Supported
		constraints.Signed
	}

	float interface {
		dtypes.Supported
		constraints.Float
	}

	complexNumber interface {
		dtypes.Supported
		constraints.Complex
	}

	ordered interface {
		dtypes.Supported
		constraints.Ordered
	}
)

// CheckSupported returns an error if the backend of ctx doesn't support op for dtype.
func CheckSupported(ctx *device.Context, op backends.OpType, dtype dtypes.DType) error {
	if !ctx.Backend().Capabilities().Supports(op, dtype) {
		return errors.Wrapf(typebridge.ErrUnsupportedType, "backend %s does not support %s for %s",
			ctx.Kind(), op, dtype)
	}
	return nil
}

// unsupported returns the error of selecting a kernel for an unsupported dtype.
func unsupported(kernel string, dtype dtypes.DType) error {
	return errors.Wrapf(typebridge.ErrUnsupportedType, "%s kernel does not support %s", kernel, dtype)
}

// parallelRanges splits [0, n) into ranges of at least MinChunkSize, and calls fn on each of them in parallel.
func parallelRanges(n int, fn func(start, end int)) {
	numChunks := max(1, min(n/max(1, MinChunkSize), 4*max(1, Pool.MaxParallelism())))
	if numChunks == 1 {
		fn(0, n)
		return
	}
	chunkSize := (n + numChunks - 1) / numChunks
	Pool.ForEach(numChunks, func(ii int) {
		start := ii * chunkSize
		end := min(start+chunkSize, n)
		if start < end {
			fn(start, end)
		}
	})
}

// parallelChunks calls fn on chunks of values, in parallel. See parallelRanges.
func parallelChunks[T any](values []T, fn func(chunk []T)) {
	parallelRanges(len(values), func(start, end int) { fn(values[start:end]) })
}

// parallelRows calls fn for each of the rows of values, in parallel.
func parallelRows[T any](values []T, rows int, fn func(row int, rowValues []T)) {
	cols := len(values) / rows
	Pool.ForEach(rows, func(row int) {
		fn(row, values[row*cols:(row+1)*cols])
	})
}
