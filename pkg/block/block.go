// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package block implements Block, the base of every processing node that computes on device arrays.
//
// A Block owns:
//
//   - Its device.Context (backend kind, device and domain tag), selected at setup with the "backend" and
//     "device" setters, and re-asserted at the start of every invocation.
//   - Its indexed input and output ports.
//   - Named string setters, for the control plane, and named signals emitted when parameters change.
//   - Its output Sizing, used by the topology to create the output buffer managers.
//
// Concrete nodes (package github.com/gomlx/flowarray/pkg/blocks) embed *Block and implement Work, which is
// called through Invoke.
package block

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/flowarray/pkg/adapter"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Names of the setters and signals registered by every Block.
const (
	SetterBackend = "backend"
	SetterDevice  = "device"
)

// SignalFunc is called with the arguments of an emitted signal.
type SignalFunc func(args ...any)

// SetterFunc parses value and sets the corresponding parameter.
type SetterFunc func(value string) error

// Block is the base of processing nodes. See package documentation.
type Block struct {
	name string
	uid  string
	ctx  *device.Context

	inputs  []*stream.Input
	outputs []*stream.Output

	// contextOutputs are the outputs tagged with the domain of ctx, re-tagged when the device changes.
	contextOutputs []*stream.Output
	contextChecks  []func(ctx *device.Context) error

	mu      sync.Mutex
	signals map[string][]SignalFunc
	setters map[string]SetterFunc

	sizing Sizing
}

// New creates a Block named name using the given context.
// The context is owned by the Block from now on.
func New(ctx *device.Context, name string) *Block {
	b := &Block{
		name:    name,
		uid:     uuid.NewString(),
		ctx:     ctx,
		signals: make(map[string][]SignalFunc),
		setters: make(map[string]SetterFunc),
	}
	b.RegisterSetter(SetterBackend, func(value string) error {
		return b.switchContext(func() error { return b.ctx.SetBackend(value) })
	})
	b.RegisterSetter(SetterDevice, func(value string) error {
		return b.switchContext(func() error { return b.ctx.SetDevice(value) })
	})
	return b
}

// AddContextCheck registers a check run whenever the "backend" or "device" setters change the context.
// Nodes use it to verify that the new backend still supports their operation.
func (b *Block) AddContextCheck(check func(ctx *device.Context) error) {
	b.contextChecks = append(b.contextChecks, check)
}

// switchContext applies change to the context and runs the context checks. If a check fails, the previous
// backend and device are restored. On success, outputs following the context are re-tagged with its domain.
func (b *Block) switchContext(change func() error) error {
	previous := b.ctx.Key()
	if err := change(); err != nil {
		return err
	}
	for _, check := range b.contextChecks {
		if err := check(b.ctx); err != nil {
			target := b.ctx.String()
			if restoreErr := b.ctx.SetKey(previous); restoreErr != nil {
				klog.Errorf("%s: failed to restore device %s: %+v", b.name, previous, restoreErr)
			}
			return errors.WithMessagef(err, "cannot run on %s", target)
		}
	}
	domain := b.ctx.Domain()
	for _, out := range b.contextOutputs {
		out.SetDomain(domain)
	}
	return nil
}

// Name of the block, used in logs and errors.
func (b *Block) Name() string { return b.name }

// UID is a unique identifier of the block, generated at creation.
func (b *Block) UID() string { return b.uid }

// String implements fmt.Stringer.
func (b *Block) String() string {
	return fmt.Sprintf("%s[%s]", b.name, b.ctx)
}

// Context returns the backend/device context of the block.
func (b *Block) Context() *device.Context { return b.ctx }

// Base returns itself, so that nodes embedding *Block expose it.
func (b *Block) Base() *Block { return b }

// SetupInput adds the next indexed input port, with the given element type.
func (b *Block) SetupInput(dtype stream.DType) *stream.Input {
	index := len(b.inputs)
	in := stream.NewInput(fmt.Sprint(index), index, dtype)
	b.inputs = append(b.inputs, in)
	return in
}

// SetupOutput adds the next indexed output port, with the given element type and the domain of the
// block's context. The domain follows later changes of backend or device made through the setters.
func (b *Block) SetupOutput(dtype stream.DType) *stream.Output {
	out := b.SetupOutputWithDomain(dtype, b.ctx.Domain())
	b.contextOutputs = append(b.contextOutputs, out)
	return out
}

// SetupOutputWithDomain adds the next indexed output port with an explicit domain.
//
// Nodes that forward their input buffers downstream use a domain unique to the block (e.g. its UID), since
// the forwarded buffers are not allocated by the block's buffer managers.
func (b *Block) SetupOutputWithDomain(dtype stream.DType, domain string) *stream.Output {
	index := len(b.outputs)
	out := stream.NewOutput(fmt.Sprint(index), index, dtype, domain)
	b.outputs = append(b.outputs, out)
	return out
}

// Inputs returns the indexed input ports.
func (b *Block) Inputs() []stream.InputPort {
	ports := make([]stream.InputPort, len(b.inputs))
	for ii, in := range b.inputs {
		ports[ii] = in
	}
	return ports
}

// Outputs returns the indexed output ports.
func (b *Block) Outputs() []stream.OutputPort {
	ports := make([]stream.OutputPort, len(b.outputs))
	for ii, out := range b.outputs {
		ports[ii] = out
	}
	return ports
}

// Input returns the indexed input port, or nil if it doesn't exist.
func (b *Block) Input(index int) *stream.Input {
	if index < 0 || index >= len(b.inputs) {
		return nil
	}
	return b.inputs[index]
}

// Output returns the indexed output port, or nil if it doesn't exist.
func (b *Block) Output(index int) *stream.Output {
	if index < 0 || index >= len(b.outputs) {
		return nil
	}
	return b.outputs[index]
}

// WorkInfo summarizes the block's ports at the start of an invocation.
func (b *Block) WorkInfo() stream.WorkInfo {
	return stream.NewWorkInfo(b.Inputs(), b.Outputs())
}

// RegisterSignal makes a signal available for Connect. Emitting or connecting to an unregistered signal
// is an error.
func (b *Block) RegisterSignal(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, found := b.signals[name]; !found {
		b.signals[name] = nil
	}
}

// Connect fn to the signal name: it is called synchronously every time the signal is emitted.
func (b *Block) Connect(name string, fn SignalFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	slots, found := b.signals[name]
	if !found {
		return errors.Errorf("block %s has no signal %q", b.name, name)
	}
	b.signals[name] = append(slots, fn)
	return nil
}

// EmitSignal calls every function connected to the signal name with args.
// It panics if the signal was not registered, since that is a bug in the node.
func (b *Block) EmitSignal(name string, args ...any) {
	b.mu.Lock()
	slots, found := b.signals[name]
	slots = slices.Clone(slots)
	b.mu.Unlock()
	if !found {
		exceptions.Panicf("block %s emitted unregistered signal %q", b.name, name)
	}
	klog.V(2).Infof("%s: signal %s%v", b.name, name, args)
	for _, fn := range slots {
		fn(args...)
	}
}

// Signals returns the names of the registered signals, sorted.
func (b *Block) Signals() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.signals))
	for name := range b.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterSetter makes a parameter settable from a string with Set.
// Registering the same name again replaces the setter.
func (b *Block) RegisterSetter(name string, setter SetterFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setters[name] = setter
}

// Set parses value with the setter registered with the given name.
func (b *Block) Set(name, value string) error {
	b.mu.Lock()
	setter, found := b.setters[name]
	b.mu.Unlock()
	if !found {
		return errors.Errorf("block %s has no parameter %q", b.name, name)
	}
	if err := setter(value); err != nil {
		return errors.WithMessagef(err, "block %s: failed to set %s=%q", b.name, name, value)
	}
	klog.V(1).Infof("%s: set %s=%q", b.name, name, value)
	return nil
}

// Setters returns the names of the registered setters, sorted.
func (b *Block) Setters() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.setters))
	for name := range b.setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs one invocation of the block's work function.
//
// It re-asserts the block's context, converts panics raised by kernels into errors, and treats
// adapter.ErrEmptyInput as "nothing to do": in that case it returns nil.
func (b *Block) Invoke(work func() error) error {
	if err := b.ctx.Check(); err != nil {
		return errors.WithMessagef(err, "block %s", b.name)
	}
	var err error
	exception := exceptions.Try(func() { err = work() })
	if exception != nil {
		if panicErr, ok := exception.(error); ok {
			err = errors.WithMessage(panicErr, "panicked")
		} else {
			err = errors.Errorf("panicked: %v", exception)
		}
	}
	if errors.Is(err, adapter.ErrEmptyInput) {
		return nil
	}
	if err != nil {
		return errors.WithMessagef(err, "block %s", b.name)
	}
	return nil
}
