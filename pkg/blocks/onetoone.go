// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blocks

import (
	"strings"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/adapter"
	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/kernels"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/gomlx/flowarray/pkg/typebridge"
	"github.com/pkg/errors"
)

// OneToOne applies an element-wise function (backends.OpTypeAbs, OpTypeNegate or OpTypeConj) to each of its
// channels. All channels are batched in one array, truncated to the minimum number of elements available.
//
// The output type may differ from the input type: the absolute value of complex elements is real.
type OneToOne struct {
	*block.Block
	kernel kernels.UnaryFunc
}

// NewOneToOne creates a OneToOne node for op, with numChannels channels of elements of dtype.
func NewOneToOne(ctx *device.Context, op backends.OpType, dtype stream.DType, numChannels int) (*OneToOne, error) {
	if numChannels <= 0 {
		return nil, errors.Errorf("%s: invalid number of channels %d", op, numChannels)
	}
	deviceType, err := deviceTypeFor(ctx, op, dtype, typebridge.SupportAll)
	if err != nil {
		return nil, err
	}
	kernel, outDeviceType, err := kernels.Unary(op, deviceType)
	if err != nil {
		return nil, err
	}
	outType, err := typebridge.FromDeviceType(outDeviceType)
	if err != nil {
		return nil, err
	}
	outType = outType.WithDimension(dtype.Dimension)
	n := &OneToOne{Block: block.New(ctx, strings.ToLower(op.String())), kernel: kernel}
	checkOnSwitch(n.Block, op, deviceType)
	for range numChannels {
		n.SetupInput(dtype)
		n.SetupOutput(outType)
	}
	return n, nil
}

// Work runs one invocation of the node.
func (n *OneToOne) Work() error {
	return n.Invoke(n.work)
}

func (n *OneToOne) work() error {
	ctx := n.Context()
	array, err := adapter.ReadBatched(ctx, n.Inputs())
	if err != nil {
		return err
	}
	result, err := n.kernel(ctx, array)
	if err != nil {
		return err
	}
	return adapter.WriteBatched(ctx, n.Outputs(), result)
}
