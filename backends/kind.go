// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

// Kind enumerates the execution paths of the array engine.
type Kind int

//go:generate go tool enumer -type=Kind -trimprefix=Kind -output=gen_kind_enumer.go kind.go

const (
	// KindCPU runs on host cores.
	KindCPU Kind = iota

	// KindCUDA runs on NVIDIA GPUs.
	KindCUDA

	// KindOpenCL runs on OpenCL platforms (GPUs, FPGAs, other accelerators).
	KindOpenCL
)
