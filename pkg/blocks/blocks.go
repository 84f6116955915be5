// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package blocks implements the processing nodes that run kernels on device arrays: Scale, FFT, RFFT,
// MinMax, Constant and OneToOne.
//
// Every node embeds a *block.Block, and implements Work, which runs one invocation:
//
//	scale, err := blocks.NewScale(ctx, stream.ComplexFloat32, 2.0)
//	...
//	err = scale.Set("labelId", "gain")  // Factor updates from upstream labels with id "gain".
//
// Nodes are connected and run by a flow.Topology (package github.com/gomlx/flowarray/pkg/flow).
package blocks

import (
	"strconv"
	"sync"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/kernels"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/gomlx/flowarray/pkg/typebridge"
	"github.com/pkg/errors"
)

// param is a node parameter, which the control plane may change while the node runs.
type param[T any] struct {
	mu    sync.Mutex
	value T
}

func (p *param[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *param[T]) Set(value T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = value
}

// deviceTypeFor validates the stream type of a node's ports against the operation support matrix and the
// capabilities of the context's backend, and returns the corresponding device type.
func deviceTypeFor(ctx *device.Context, op backends.OpType, dtype stream.DType, support typebridge.Support) (dtypes.DType, error) {
	if err := typebridge.Validate(dtype, support); err != nil {
		return dtypes.InvalidDType, errors.WithMessagef(err, "%s", op)
	}
	deviceType, err := typebridge.ToDeviceType(dtype)
	if err != nil {
		return dtypes.InvalidDType, err
	}
	if err := kernels.CheckSupported(ctx, op, deviceType); err != nil {
		return dtypes.InvalidDType, err
	}
	return deviceType, nil
}

// checkOnSwitch re-checks the backend support of op for deviceType whenever the "backend" or "device"
// setters of b change its context.
func checkOnSwitch(b *block.Block, op backends.OpType, deviceType dtypes.DType) {
	b.AddContextCheck(func(ctx *device.Context) error {
		return kernels.CheckSupported(ctx, op, deviceType)
	})
}

// parseFloat parses a numeric parameter given by the control plane.
func parseFloat(name, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid value %q for %s", value, name)
	}
	return f, nil
}
