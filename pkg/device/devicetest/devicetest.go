// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package devicetest holds test utilities for packages that need a device.Context.
package devicetest

import (
	"testing"

	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/backends/cpu"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/stretchr/testify/require"
)

// DefaultDeviceNames are the names of the CPU devices created by NewCatalog when none are given.
var DefaultDeviceNames = []string{"DeviceA", "DeviceB"}

// NewCatalog builds a private catalog with one CPU backend with the given device names.
func NewCatalog(t testing.TB, deviceNames ...string) *device.Catalog {
	t.Helper()
	if len(deviceNames) == 0 {
		deviceNames = DefaultDeviceNames
	}
	reg := backends.NewRegistry()
	reg.Register(backends.KindCPU, func(string) (backends.Backend, error) {
		return cpu.NewBackend(backends.KindCPU, deviceNames...), nil
	})
	catalog := device.BuildCatalog(reg)
	require.NoError(t, catalog.Err())
	return catalog
}

// NewContext returns a context on a private catalog created with NewCatalog.
// The context accepts backend and device changes regardless of backends.PerThreadConfig.
func NewContext(t testing.TB, deviceNames ...string) *device.Context {
	t.Helper()
	ctx, err := device.NewContext(NewCatalog(t, deviceNames...), device.WithPerThreadConfig(true))
	require.NoError(t, err)
	return ctx
}
