// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blocks

import (
	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/adapter"
	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/kernels"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/gomlx/flowarray/pkg/typebridge"
)

// Names of the Constant parameters and signals.
const (
	ConstantSetterValue = "constant"
	ConstantChanged     = "constantChanged"
)

// Constant is a source node that fills all the free space of its output with a constant value.
type Constant struct {
	*block.Block
	deviceType dtypes.DType
	kernel     kernels.ConstantFunc
	value      param[any]
}

// NewConstant creates a Constant node for elements of dtype. Elements with a Dimension > 1 have all their
// values set to the constant.
//
// value can be any numeric Go value convertible to dtype (see kernels.ConvertValue).
func NewConstant(ctx *device.Context, dtype stream.DType, value any) (*Constant, error) {
	deviceType, err := deviceTypeFor(ctx, backends.OpTypeConstant, dtype, typebridge.SupportAll)
	if err != nil {
		return nil, err
	}
	kernel, err := kernels.Constant(deviceType)
	if err != nil {
		return nil, err
	}
	n := &Constant{Block: block.New(ctx, "constant"), deviceType: deviceType, kernel: kernel}
	checkOnSwitch(n.Block, backends.OpTypeConstant, deviceType)
	n.SetupOutput(dtype)
	n.RegisterSignal(ConstantChanged)
	n.RegisterSetter(ConstantSetterValue, func(value string) error { return n.SetConstant(value) })
	if err := n.SetConstant(value); err != nil {
		return nil, err
	}
	return n, nil
}

// Constant returns the current value, as the Go type of the output elements.
func (n *Constant) Constant() any { return n.value.Get() }

// SetConstant changes the value, and emits ConstantChanged with the converted value.
func (n *Constant) SetConstant(value any) error {
	converted, err := kernels.ConvertValue(n.deviceType, value)
	if err != nil {
		return err
	}
	n.value.Set(converted)
	n.EmitSignal(ConstantChanged, converted)
	return nil
}

// Work runs one invocation of the node.
func (n *Constant) Work() error {
	return n.Invoke(n.work)
}

func (n *Constant) work() error {
	out := n.Output(0)
	elems := n.WorkInfo().MinElements
	if elems == 0 {
		return adapter.ErrEmptyInput
	}
	ctx := n.Context()
	array, err := n.kernel(ctx, n.Constant(), elems*out.DType().ValuesPerElement())
	if err != nil {
		return err
	}
	return adapter.WriteSingle(ctx, out, array)
}
