// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package cpu implements a portable backend that keeps device buffers in Go host memory.
//
// It is always available, and it is the default backend of the device catalog. Its buffers are
// "shared buffers": kernels and clients read and mutate them directly, so taking a stream buffer
// as a device array involves no copy.
//
// The backend configuration (see backends.FLOWARRAY_BACKEND) is a comma-separated list of options:
//
//   - "devices=N": number of logical devices to expose, default 1. Each device has its own buffer pools.
package cpu

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// BackendName to be used in FLOWARRAY_BACKEND to specify this backend.
const BackendName = "cpu"

// Registers New() as the constructor for the cpu backend.
func init() {
	backends.Register(backends.KindCPU, New)
}

// New constructs a new cpu Backend, configured with config.
func New(config string) (backends.Backend, error) {
	numDevices := 1
	if config != "" {
		parts := strings.Split(config, ",")
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key, value, _ := strings.Cut(part, "=")
			switch key {
			case "devices":
				n, err := strconv.Atoi(value)
				if err != nil || n <= 0 {
					return nil, errors.Errorf("invalid value %q for option \"devices\" of the %s backend, "+
						"it must be a positive integer", value, BackendName)
				}
				numDevices = n
			default:
				return nil, errors.Errorf("unknown configuration option %q for the %s backend", part, BackendName)
			}
		}
	}
	deviceNames := make([]string, numDevices)
	for ii := range deviceNames {
		deviceNames[ii] = fmt.Sprintf("Go CPU %d (%s/%s)", ii, runtime.GOOS, runtime.GOARCH)
	}
	return NewBackend(backends.KindCPU, deviceNames...), nil
}

// NewBackend creates a host memory backend reporting the given kind, with one device per name.
//
// It's used by New, and by tests that need to emulate backends of other kinds, or devices with
// specific names.
func NewBackend(kind backends.Kind, deviceNames ...string) *Backend {
	b := &Backend{kind: kind}
	b.devices = make([]backends.DeviceInfo, len(deviceNames))
	for ii, name := range deviceNames {
		b.devices[ii] = backends.DeviceInfo{
			Name:         name,
			Float64:      true,
			Float16:      true,
			SharedMemory: true,
		}
	}
	return b
}

// Backend implements the backends.Backend interface.
type Backend struct {
	kind    backends.Kind
	devices []backends.DeviceInfo

	// bufferPools are a map to pools of buffers that can be reused.
	// The underlying type is map[bufferPoolKey]*sync.Pool.
	bufferPools sync.Map

	isFinalized atomic.Bool
}

// Compile-time check that cpu.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return strings.ToLower(b.kind.String())
}

// String implements fmt.Stringer.
func (b *Backend) String() string { return b.Name() }

// Kind of the backend.
func (b *Backend) Kind() backends.Kind { return b.kind }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	if b.kind == backends.KindCPU {
		return "Portable Go host memory backend"
	}
	return fmt.Sprintf("Go host memory backend emulating %s", b.kind)
}

// NumDevices return the number of devices available for this Backend.
func (b *Backend) NumDevices() backends.DeviceNum {
	return backends.DeviceNum(len(b.devices))
}

// DeviceInfo returns the description of the given device.
func (b *Backend) DeviceInfo(deviceNum backends.DeviceNum) (backends.DeviceInfo, error) {
	if err := b.checkDeviceNum(deviceNum); err != nil {
		return backends.DeviceInfo{}, err
	}
	return b.devices[deviceNum], nil
}

func (b *Backend) checkDeviceNum(deviceNum backends.DeviceNum) error {
	if b.isFinalized.Load() {
		return errors.Errorf("backend %q has already been finalized", b.Name())
	}
	if deviceNum < 0 || deviceNum >= b.NumDevices() {
		return errors.Errorf("backend %q has %d devices, deviceNum %d is invalid", b.Name(), b.NumDevices(), deviceNum)
	}
	return nil
}

// Capabilities of the cpu backend: every kernel family for every device element type.
var Capabilities = func() backends.Capabilities {
	c := backends.Capabilities{
		Operations: make(map[backends.OpType]bool),
		DTypes:     make(map[dtypes.DType]bool),
	}
	for op := backends.OpTypeInvalid + 1; op < backends.OpTypeLast; op++ {
		c.Operations[op] = true
	}
	for _, dtype := range dtypes.All {
		c.DTypes[dtype] = true
	}
	return c
}()

// Capabilities returns information about what is supported by this backend.
func (b *Backend) Capabilities() backends.Capabilities {
	return Capabilities
}

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {
	b.isFinalized.Store(true)
	b.bufferPools.Clear()
}

// IsFinalized returns true if the backend is finalized.
func (b *Backend) IsFinalized() bool {
	return b.isFinalized.Load()
}
