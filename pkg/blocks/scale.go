// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blocks

import (
	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/adapter"
	"github.com/gomlx/flowarray/pkg/block"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/kernels"
	"github.com/gomlx/flowarray/pkg/labels"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/gomlx/flowarray/pkg/typebridge"
	"k8s.io/klog/v2"
)

// Names of the Scale parameters and signals.
const (
	ScaleSetterFactor  = "factor"
	ScaleSetterLabelID = "labelId"
	ScaleFactorChanged = "factorChanged"
)

// Scale multiplies every input element by a factor: out[n] = in[n] * factor.
//
// Upstream nodes can change the factor mid-stream with a label: if the label id is set, labels with that
// id carry the new factor, which applies from the labeled element on (see package labels).
type Scale struct {
	*block.Block
	kernel  kernels.ScaleFunc
	factor  param[float64]
	labelID param[string]
}

// NewScale creates a Scale node for elements of dtype, with the initial factor.
func NewScale(ctx *device.Context, dtype stream.DType, factor float64) (*Scale, error) {
	deviceType, err := deviceTypeFor(ctx, backends.OpTypeScale, dtype, typebridge.SupportAll)
	if err != nil {
		return nil, err
	}
	kernel, err := kernels.Scale(deviceType)
	if err != nil {
		return nil, err
	}
	n := &Scale{Block: block.New(ctx, "scale"), kernel: kernel}
	checkOnSwitch(n.Block, backends.OpTypeScale, deviceType)
	n.SetupInput(dtype)
	n.SetupOutput(dtype)
	n.RegisterSignal(ScaleFactorChanged)
	n.RegisterSetter(ScaleSetterFactor, func(value string) error {
		f, err := parseFloat(ScaleSetterFactor, value)
		if err != nil {
			return err
		}
		n.SetFactor(f)
		return nil
	})
	n.RegisterSetter(ScaleSetterLabelID, func(value string) error {
		n.SetLabelID(value)
		return nil
	})
	n.SetFactor(factor)
	return n, nil
}

// Factor returns the current scale factor.
func (n *Scale) Factor() float64 { return n.factor.Get() }

// SetFactor changes the scale factor, and emits ScaleFactorChanged.
func (n *Scale) SetFactor(factor float64) {
	n.factor.Set(factor)
	n.EmitSignal(ScaleFactorChanged, factor)
}

// LabelID returns the id of the labels that update the factor. Empty if disabled.
func (n *Scale) LabelID() string { return n.labelID.Get() }

// SetLabelID sets the id of the labels that update the factor. An empty id disables label updates.
func (n *Scale) SetLabelID(id string) { n.labelID.Set(id) }

// Work runs one invocation of the node.
func (n *Scale) Work() error {
	return n.Invoke(n.work)
}

func (n *Scale) work() error {
	ctx := n.Context()
	in, out := n.Input(0), n.Output(0)
	elems := in.Elements()
	if elems == 0 {
		return adapter.ErrEmptyInput
	}
	protocol := labels.Protocol{ID: n.LabelID()}
	elems, err := protocol.Scan(in.Labels(), elems, func(label stream.Label) error {
		factor, err := label.Float64()
		if err != nil {
			return err
		}
		klog.V(1).Infof("%s: factor set to %g by label at element %d", n, factor, in.TotalConsumed())
		n.SetFactor(factor)
		return nil
	})
	if err != nil {
		return err
	}
	array, err := adapter.ReadElements(ctx, in, elems)
	if err != nil {
		return err
	}
	if err := n.kernel(array, n.Factor()); err != nil {
		return err
	}
	return adapter.WriteSingle(ctx, out, array)
}
