// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blocks

import (
	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/adapter"
	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/kernels"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/gomlx/flowarray/pkg/typebridge"
)

// Ids of the labels posted by MinMax nodes.
const (
	MinLabelID = "MIN"
	MaxLabelID = "MAX"
)

// MinMax forwards its input buffers unchanged, and labels the element with the minimum (or maximum) value of
// each buffer with a MinLabelID (or MaxLabelID) label holding the value.
//
// Buffers are forwarded without copies, so the output port has a domain unique to the node.
type MinMax struct {
	*block.Block
	kernel  kernels.ExtremeFunc
	labelID string
}

// NewMin creates a MinMax node that labels the minimum of each buffer.
func NewMin(ctx *device.Context, dtype stream.DType) (*MinMax, error) {
	return newMinMax(ctx, dtype, false)
}

// NewMax creates a MinMax node that labels the maximum of each buffer.
func NewMax(ctx *device.Context, dtype stream.DType) (*MinMax, error) {
	return newMinMax(ctx, dtype, true)
}

func newMinMax(ctx *device.Context, dtype stream.DType, findMax bool) (*MinMax, error) {
	dtype = dtype.Scalar()
	deviceType, err := deviceTypeFor(ctx, backends.OpTypeMinMax, dtype, typebridge.SupportReal)
	if err != nil {
		return nil, err
	}
	kernel, err := kernels.MinMax(deviceType, findMax)
	if err != nil {
		return nil, err
	}
	name, labelID := "min", MinLabelID
	if findMax {
		name, labelID = "max", MaxLabelID
	}
	n := &MinMax{Block: block.New(ctx, name), kernel: kernel, labelID: labelID}
	checkOnSwitch(n.Block, backends.OpTypeMinMax, deviceType)
	n.SetupInput(dtype)
	n.SetupOutputWithDomain(dtype, n.UID())
	return n, nil
}

// LabelID returns the id of the labels posted by the node.
func (n *MinMax) LabelID() string { return n.labelID }

// Work runs one invocation of the node.
func (n *MinMax) Work() error {
	return n.Invoke(n.work)
}

func (n *MinMax) work() error {
	ctx := n.Context()
	in, out := n.Input(0), n.Output(0)
	array, err := adapter.TakeSingle(ctx, in, in.Elements())
	if err != nil {
		return err
	}
	value, index, err := n.kernel(array)
	if err != nil {
		return err
	}
	out.PostLabel(stream.Label{ID: n.labelID, Data: value, Index: index})
	return adapter.PostSingle(ctx, out, array)
}
