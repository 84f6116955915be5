// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build flowarray_global

package backends

// PerThreadConfig reports whether each node may select its own backend and device.
//
// This build was compiled with the "flowarray_global" tag: one backend and device for the whole process.
const PerThreadConfig = false
