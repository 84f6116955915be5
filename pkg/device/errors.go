// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package device

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when a backend or device name is not present in the catalog.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedOperation is returned when per-node backend or device selection is requested
	// on a build that only supports one global backend and device (see backends.PerThreadConfig).
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrNoDeviceFound is returned when the catalog is empty.
	ErrNoDeviceFound = errors.New("no device found")
)
