// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package _default includes the default backends, namely the cpu backend.
//
// To use it simply include:
//
//	import _ "github.com/gomlx/flowarray/backends/default"
//
// Accelerator backends (CUDA, OpenCL) register themselves from their own packages, when their
// native libraries are available.
package _default

import (
	_ "github.com/gomlx/flowarray/backends/cpu"
)
