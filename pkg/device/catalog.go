// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package device holds the catalog of available backends and devices, and the Context a node uses
// to select the backend and device its arrays live on.
//
// The catalog is built once per process (DefaultCatalog), by constructing every registered backend
// and enumerating its devices. Backends that fail to initialize are logged and left out.
//
// A Context is an explicit value owned by one node: it is selected at setup (SetBackend, SetDevice)
// and re-asserted at the start of every invocation (Check). Arrays remember the context key they were
// created under, and cannot be mixed with arrays of another context.
package device

import (
	"slices"
	"sync"

	"github.com/gomlx/flowarray/backends"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// Entry describes one device of one backend. It is immutable.
type Entry struct {
	Kind  backends.Kind
	Index backends.DeviceNum
	Name  string

	// Capability flags, see backends.DeviceInfo.
	Float64, Float16, SharedMemory bool
}

// Catalog of the devices of all backends that initialized successfully.
//
// A Catalog is read-only after BuildCatalog returns, and it is safe for concurrent use.
type Catalog struct {
	entries  []Entry
	kinds    []backends.Kind
	backends map[backends.Kind]backends.Backend
	err      error
}

// BuildCatalog constructs every backend registered in reg, in registration order, and records one
// Entry per device.
//
// Each backend is constructed with the configuration for its kind taken from backends.CurrentConfig.
// Backends that fail to construct, report no devices, or fail to describe one of their devices are
// logged and left out: their errors are available from Catalog.Err.
func BuildCatalog(reg *backends.Registry) *Catalog {
	c := &Catalog{backends: make(map[backends.Kind]backends.Backend)}
	for _, registration := range reg.Registrations() {
		kind := registration.Kind
		backend, err := reg.New(kind, backends.ConfigFor(kind))
		if err != nil {
			klog.Warningf("device catalog: skipping backend %s: %+v", kind, err)
			c.err = multierr.Append(c.err, err)
			continue
		}
		entries, err := describeDevices(backend)
		if err != nil {
			klog.Warningf("device catalog: skipping backend %s: %v", kind, err)
			c.err = multierr.Append(c.err, err)
			backend.Finalize()
			continue
		}
		c.entries = append(c.entries, entries...)
		c.kinds = append(c.kinds, kind)
		c.backends[kind] = backend
		klog.V(1).Infof("device catalog: backend %s (%s) with %d device(s)", kind, backend.Description(), len(entries))
	}
	if len(c.entries) == 0 {
		klog.Errorf("device catalog: no devices found in %d registered backend(s)", len(reg.Registrations()))
	}
	return c
}

// describeDevices returns the entries for all devices of backend.
func describeDevices(backend backends.Backend) ([]Entry, error) {
	numDevices := backend.NumDevices()
	if numDevices <= 0 {
		return nil, errors.Errorf("backend %s reports no devices", backend.Kind())
	}
	entries := make([]Entry, 0, numDevices)
	for deviceNum := range numDevices {
		info, err := backend.DeviceInfo(deviceNum)
		if err != nil {
			return nil, errors.WithMessagef(err, "backend %s failed to describe device #%d", backend.Kind(), deviceNum)
		}
		entries = append(entries, Entry{
			Kind:         backend.Kind(),
			Index:        deviceNum,
			Name:         info.Name,
			Float64:      info.Float64,
			Float16:      info.Float16,
			SharedMemory: info.SharedMemory,
		})
	}
	return entries, nil
}

// DefaultCatalog returns the process-wide catalog, built from backends.DefaultRegistry the first
// time it is called.
//
// Only backends registered before the first call are included: import them (e.g.
// github.com/gomlx/flowarray/backends/default) before using any node.
var DefaultCatalog = sync.OnceValue(func() *Catalog {
	return BuildCatalog(backends.DefaultRegistry())
})

// Entries returns the catalog entries, ordered by backend registration order and then device index.
func (c *Catalog) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Kinds returns the backend kinds present in the catalog, in registration order.
func (c *Catalog) Kinds() []backends.Kind {
	return slices.Clone(c.kinds)
}

// HasKind returns whether the catalog has devices for the given kind.
func (c *Catalog) HasKind(kind backends.Kind) bool {
	_, found := c.backends[kind]
	return found
}

// Backend returns the backend of the given kind.
func (c *Catalog) Backend(kind backends.Kind) (backends.Backend, error) {
	backend, found := c.backends[kind]
	if !found {
		return nil, errors.Wrapf(ErrNotFound, "backend %s is not in the device catalog", kind)
	}
	return backend, nil
}

// Find returns the entry for the device named name in the backend kind.
func (c *Catalog) Find(kind backends.Kind, name string) (Entry, error) {
	for _, entry := range c.entries {
		if entry.Kind == kind && entry.Name == name {
			return entry, nil
		}
	}
	return Entry{}, errors.Wrapf(ErrNotFound, "could not find device with backend %s and name %q", kind, name)
}

// Lookup returns the entry for the device deviceNum of backend kind.
func (c *Catalog) Lookup(kind backends.Kind, deviceNum backends.DeviceNum) (Entry, error) {
	for _, entry := range c.entries {
		if entry.Kind == kind && entry.Index == deviceNum {
			return entry, nil
		}
	}
	return Entry{}, errors.Wrapf(ErrNotFound, "could not find device #%d of backend %s", deviceNum, kind)
}

// DefaultKind returns the kind selected by backends.CurrentConfig, if it is in the catalog,
// or the first kind in the catalog otherwise.
func (c *Catalog) DefaultKind() (backends.Kind, error) {
	if len(c.kinds) == 0 {
		return 0, errors.WithStack(ErrNoDeviceFound)
	}
	kind, _, found, err := backends.SplitConfig(backends.CurrentConfig())
	if err != nil {
		klog.Warningf("device catalog: ignoring %s: %v", backends.FLOWARRAY_BACKEND, err)
	} else if found && c.HasKind(kind) {
		return kind, nil
	} else if found {
		klog.Warningf("device catalog: backend %s selected by %s is not available, using %s",
			kind, backends.FLOWARRAY_BACKEND, c.kinds[0])
	}
	return c.kinds[0], nil
}

// Err returns the aggregated errors of the backends left out of the catalog, or nil.
// Use multierr.Errors to split it.
func (c *Catalog) Err() error {
	return c.err
}
