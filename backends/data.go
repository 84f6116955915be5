// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import "github.com/gomlx/flowarray/pkg/core/shapes"

// Buffer represents actual data (a device array) stored in the device that is going to run the kernels.
// A Buffer is always associated to a DeviceNum, even if there is only one.
//
// It is opaque from the flowarray perspective, only the backend that created it knows how to use it.
type Buffer any

// DataInterface is the Backend's subinterface that defines the API to transfer Buffer to/from devices.
type DataInterface interface {
	// BufferFinalize allows the client to inform backend that buffer is no longer needed and associated resources can be
	// freed immediately -- as opposed to waiting for a GC.
	//
	// A finalized buffer should never be used again. Preferably, the caller should set its references to it to nil.
	BufferFinalize(buffer Buffer) error

	// BufferShape returns the shape for the buffer.
	BufferShape(buffer Buffer) (shapes.Shape, error)

	// BufferDeviceNum returns the deviceNum for the buffer.
	BufferDeviceNum(buffer Buffer) (DeviceNum, error)

	// BufferToFlatData transfers the flat values of buffer to the Go flat slice.
	// The slice flat must have the exact number of elements required to store the Buffer shape.
	BufferToFlatData(buffer Buffer, flat any) error

	// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding to the shape DType)
	// to the deviceNum, and returns the corresponding Buffer.
	BufferFromFlatData(deviceNum DeviceNum, flat any, shape shapes.Shape) (Buffer, error)

	// HasSharedBuffers returns whether the backend supports "shared buffers": these are buffers
	// that have a local address that can be read or mutated directly by the client.
	HasSharedBuffers() bool

	// NewSharedBuffer returns a "shared buffer" that can be both used by kernels and directly
	// read or mutated by the clients.
	//
	// When done, to release the memory, call BufferFinalize on the returned buffer.
	//
	// It returns a handle to the buffer and a slice of the corresponding data type pointing
	// to the shared data.
	NewSharedBuffer(deviceNum DeviceNum, shape shapes.Shape) (buffer Buffer, flat any, err error)

	// WrapSharedBuffer creates a shared buffer that uses the given flat slice as its storage, without copying.
	// The caller gives up ownership of flat: it must not use it again except through BufferData.
	//
	// It returns an error if the backend doesn't support shared buffers -- see HasSharedBuffers.
	WrapSharedBuffer(deviceNum DeviceNum, flat any, shape shapes.Shape) (Buffer, error)

	// BufferData returns a slice pointing to the buffer storage memory directly.
	//
	// This only works if HasSharedBuffers is true, that is, if the backend runs on CPU, or
	// shares CPU memory.
	//
	// The returned slice becomes invalid after the buffer is finalized.
	BufferData(buffer Buffer) (flat any, err error)
}
