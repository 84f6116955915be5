// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface a device array engine needs to implement to be used by flowarray.
//
// A backend is one execution path of the array engine (CPU, CUDA, OpenCL, ...), and it may expose
// several devices. Backends register a Constructor for their Kind during package initialization, and
// the device catalog (package github.com/gomlx/flowarray/pkg/device) enumerates every registered
// backend once per process.
//
// Numeric kernels are not part of this interface: backends only move data between host memory and
// device buffers. Kernels operate on device arrays (package github.com/gomlx/flowarray/pkg/core/arrays).
package backends

import (
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// DeviceNum represents which device holds a buffer.
// It's up to the backend to interpret it, but it should be between 0 and Backend.NumDevices.
type DeviceNum int

// DeviceInfo describes one device of a backend.
type DeviceInfo struct {
	// Name is the display name of the device, unique within its backend.
	Name string

	// Float64 is set if the device supports double precision arithmetic.
	Float64 bool

	// Float16 is set if the device supports half precision arithmetic.
	Float16 bool

	// SharedMemory is set if the device buffers live in host memory, and can be
	// read or mutated without a transfer.
	SharedMemory bool
}

// Backend is the API that needs to be implemented by a flowarray backend.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "cpu".
	Name() string

	// Kind of the backend.
	Kind() Kind

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// NumDevices return the number of devices available for this Backend.
	NumDevices() DeviceNum

	// DeviceInfo returns the description of the given device.
	DeviceInfo(deviceNum DeviceNum) (DeviceInfo, error)

	// Capabilities returns information about what is supported by this backend.
	Capabilities() Capabilities

	// DataInterface is the sub-interface that defines the API to transfer Buffer to/from devices.
	DataInterface

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()

	// IsFinalized returns true if the backend is finalized.
	IsFinalized() bool
}

// Constructor takes a config string (optionally empty) and returns a Backend.
// It returns an error if the backend cannot be initialized on this host (no driver, no device, ...).
type Constructor func(config string) (Backend, error)

// Registration of one backend constructor.
type Registration struct {
	Kind        Kind
	Constructor Constructor
}

// Registry holds backend constructors, in registration order.
//
// Most users use the package level Register and DefaultRegistry. Tests create their own registries.
type Registry struct {
	mu            sync.Mutex
	registrations []Registration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register a constructor for the given kind. Registering a kind twice replaces the previous constructor,
// keeping its original position.
func (r *Registry) Register(kind Kind, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ii := range r.registrations {
		if r.registrations[ii].Kind == kind {
			r.registrations[ii].Constructor = constructor
			return
		}
	}
	r.registrations = append(r.registrations, Registration{Kind: kind, Constructor: constructor})
}

// Registrations returns a copy of the registered constructors, in registration order.
func (r *Registry) Registrations() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.registrations)
}

// New creates the backend of the given kind with the given configuration.
func (r *Registry) New(kind Kind, config string) (Backend, error) {
	for _, reg := range r.Registrations() {
		if reg.Kind == kind {
			backend, err := reg.Constructor(config)
			if err != nil {
				return nil, errors.WithMessagef(err, "failed to initialize backend %s", kind)
			}
			return backend, nil
		}
	}
	return nil, errors.Errorf("no backend registered for kind %s -- maybe import it with "+
		"import _ \"github.com/gomlx/flowarray/backends/%s\"?", kind, strings.ToLower(kind.String()))
}

var defaultRegistry = NewRegistry()

// Register backend constructor for the given kind in the default registry.
//
// To be safe, call Register during initialization of a package.
func Register(kind Kind, constructor Constructor) {
	defaultRegistry.Register(kind, constructor)
}

// DefaultRegistry returns the registry used by package level Register.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// DefaultConfig is the default backend configuration to use if FLOWARRAY_BACKEND is not set.
//
// See SplitConfig for the format of the configuration string.
var DefaultConfig string

// FLOWARRAY_BACKEND is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend kind (e.g.: "cpu") and
// "<backend_configuration>" is backend specific (e.g.: for the cpu backend, "devices=2").
const FLOWARRAY_BACKEND = "FLOWARRAY_BACKEND" //nolint:revive // Name of the environment variable.

// CurrentConfig returns the configuration in FLOWARRAY_BACKEND if set, or DefaultConfig otherwise.
func CurrentConfig() string {
	if config, found := os.LookupEnv(FLOWARRAY_BACKEND); found {
		return config
	}
	return DefaultConfig
}

// SplitConfig splits "<backend_name>:<backend_configuration>" into the backend kind and its configuration.
// If config is empty, it returns found=false.
func SplitConfig(config string) (kind Kind, backendConfig string, found bool, err error) {
	if config == "" {
		return
	}
	name := config
	if idx := strings.Index(config, ":"); idx != -1 {
		name = config[:idx]
		backendConfig = config[idx+1:]
	}
	kind, err = KindString(name)
	if err != nil {
		err = errors.Wrapf(err, "invalid backend name %q in configuration %q", name, config)
		return
	}
	found = true
	return
}

// ConfigFor returns the backend specific configuration for kind, taken from CurrentConfig if it names kind.
// Otherwise, it returns "".
func ConfigFor(kind Kind) string {
	configKind, backendConfig, found, err := SplitConfig(CurrentConfig())
	if err != nil || !found || configKind != kind {
		return ""
	}
	return backendConfig
}
