// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"strings"

	"github.com/gomlx/flowarray/backends"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// AutoDevice is the device name that selects the first device of the active backend.
const AutoDevice = "Auto"

// Key identifies the backend and device an array was created under.
type Key struct {
	Kind      backends.Kind
	DeviceNum backends.DeviceNum
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.DeviceNum)
}

// Context is the backend and device selection of one node.
//
// It is created and configured during the node setup, and it is not safe for concurrent mutation.
// Reading it concurrently (during invocations) is safe.
type Context struct {
	catalog   *Catalog
	perThread bool
	key       Key
}

// Option for NewContext.
type Option func(c *Context)

// WithPerThreadConfig overrides backends.PerThreadConfig. Used in tests to emulate builds limited
// to one global backend and device.
func WithPerThreadConfig(enabled bool) Option {
	return func(c *Context) {
		c.perThread = enabled
	}
}

// NewContext returns a context on catalog's default backend (see Catalog.DefaultKind) and its first device.
// If catalog is nil, DefaultCatalog is used.
//
// It returns ErrNoDeviceFound if the catalog is empty.
func NewContext(catalog *Catalog, options ...Option) (*Context, error) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	c := &Context{
		catalog:   catalog,
		perThread: backends.PerThreadConfig,
	}
	for _, option := range options {
		option(c)
	}
	kind, err := catalog.DefaultKind()
	if err != nil {
		return nil, err
	}
	c.key = Key{Kind: kind, DeviceNum: 0}
	return c, nil
}

// Catalog used by the context.
func (c *Context) Catalog() *Catalog { return c.catalog }

// PerThreadConfig returns whether the context accepts SetBackend and SetDevice.
func (c *Context) PerThreadConfig() bool { return c.perThread }

// SetBackend switches the context to the backend named name (e.g. "cpu", "CUDA"), using its first device.
//
// It returns ErrUnsupportedOperation if the build only supports one global backend, and ErrNotFound if
// the backend is not in the catalog. On error the context is left unchanged.
func (c *Context) SetBackend(name string) error {
	if !c.perThread {
		return errors.Wrapf(ErrUnsupportedOperation, "this build (tag flowarray_global) only supports a single "+
			"global backend, cannot set backend %q per node", name)
	}
	if c.catalog.Len() == 0 {
		return errors.WithStack(ErrNoDeviceFound)
	}
	kind, err := backends.KindString(name)
	if err != nil {
		return errors.Wrapf(ErrNotFound, "unknown backend %q (valid backends: %s)", name,
			strings.Join(backends.KindStrings(), ", "))
	}
	if !c.catalog.HasKind(kind) {
		return errors.Wrapf(ErrNotFound, "backend %s is not available in the device catalog", kind)
	}
	newKey := Key{Kind: kind, DeviceNum: 0}
	if _, err := c.catalog.Lookup(newKey.Kind, newKey.DeviceNum); err != nil {
		return err
	}
	c.key = newKey
	klog.V(1).Infof("device context: backend set to %s", c.key)
	return nil
}

// SetDevice switches the context to the device named name of the active backend.
// The names "" and AutoDevice select the first device.
//
// It returns ErrUnsupportedOperation if the build only supports one global device, and ErrNotFound if
// the active backend has no device with that name. On error the context is left unchanged.
func (c *Context) SetDevice(name string) error {
	if !c.perThread {
		return errors.Wrapf(ErrUnsupportedOperation, "this build (tag flowarray_global) only supports a single "+
			"global device, cannot set device %q per node", name)
	}
	if c.catalog.Len() == 0 {
		return errors.WithStack(ErrNoDeviceFound)
	}
	var entry Entry
	var err error
	if name == "" || name == AutoDevice {
		entry, err = c.catalog.Lookup(c.key.Kind, 0)
	} else {
		entry, err = c.catalog.Find(c.key.Kind, name)
	}
	if err != nil {
		return err
	}
	c.key.DeviceNum = entry.Index
	klog.V(1).Infof("device context: device set to %q (%s)", entry.Name, c.key)
	return nil
}

// SetKey switches the context to the backend and device of key, which must be in the catalog.
// It is used to restore a previous selection. On error the context is left unchanged.
func (c *Context) SetKey(key Key) error {
	if _, err := c.catalog.Lookup(key.Kind, key.DeviceNum); err != nil {
		return err
	}
	c.key = key
	return nil
}

// Check that the selected backend and device are still present in the catalog.
// It is called at the start of every invocation.
func (c *Context) Check() error {
	if c.catalog.Len() == 0 {
		return errors.WithStack(ErrNoDeviceFound)
	}
	backend, err := c.catalog.Backend(c.key.Kind)
	if err != nil {
		return err
	}
	if backend.IsFinalized() {
		return errors.Errorf("backend %s has been finalized", c.key.Kind)
	}
	_, err = c.catalog.Lookup(c.key.Kind, c.key.DeviceNum)
	return err
}

// Key returns the backend kind and device number selected.
func (c *Context) Key() Key { return c.key }

// Kind of the selected backend.
func (c *Context) Kind() backends.Kind { return c.key.Kind }

// DeviceNum of the selected device.
func (c *Context) DeviceNum() backends.DeviceNum { return c.key.DeviceNum }

// Backend returns the selected backend. It panics if the context is not valid, which can
// only happen if the context was not created with NewContext.
func (c *Context) Backend() backends.Backend {
	backend, err := c.catalog.Backend(c.key.Kind)
	if err != nil {
		panic(err)
	}
	return backend
}

// Entry returns the catalog entry of the selected device.
func (c *Context) Entry() Entry {
	entry, err := c.catalog.Lookup(c.key.Kind, c.key.DeviceNum)
	if err != nil {
		panic(err)
	}
	return entry
}

// DeviceName returns the name of the selected device.
func (c *Context) DeviceName() string {
	return c.Entry().Name
}

// Domain returns the buffer domain tag of the selected device: output ports of nodes sharing a domain
// can exchange buffers without copies.
func (c *Context) Domain() string {
	return fmt.Sprintf("flowarray:%s:%d", strings.ToLower(c.key.Kind.String()), c.key.DeviceNum)
}

// String implements fmt.Stringer.
func (c *Context) String() string {
	return fmt.Sprintf("device.Context(%s, %q)", c.key, c.DeviceName())
}
