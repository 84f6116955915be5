// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package block

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Sizing holds the output slab size declared by a node whose output length is not the length of its
// input, e.g. a transform that always emits a fixed number of elements.
//
// Nodes declare the size once, at setup. Without a declaration outputs use stream.DefaultBufferSize.
type Sizing struct {
	mu       sync.Mutex
	declared int
}

// Declare the minimum size in bytes of each output slab. It can only be called once.
func (s *Sizing) Declare(byteSize int) error {
	if byteSize <= 0 {
		return errors.Errorf("invalid output buffer size %d bytes", byteSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.declared != 0 {
		return errors.Errorf("output buffer size already declared (%s)", humanize.IBytes(uint64(s.declared)))
	}
	s.declared = byteSize
	return nil
}

// Declared returns the declared size in bytes, and whether it was declared.
func (s *Sizing) Declared() (byteSize int, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.declared, s.declared != 0
}

// BufferSize returns the slab size to use: the declared size, but never less than stream.DefaultBufferSize.
func (s *Sizing) BufferSize() int {
	declared, _ := s.Declared()
	return max(declared, stream.DefaultBufferSize)
}

// Sizing returns the output sizing of the block, for nodes to declare their slab size.
func (b *Block) Sizing() *Sizing { return &b.sizing }

// OutputBufferManager is called by the topology once per output port, at commit time, to create the buffer
// manager of the port. The domain is the one of the downstream node the output is connected to, or the
// output's own domain if it is not connected.
func (b *Block) OutputBufferManager(port, domain string) (*stream.BufferManager, error) {
	var out *stream.Output
	for _, candidate := range b.outputs {
		if candidate.Name() == port {
			out = candidate
			break
		}
	}
	if out == nil {
		return nil, errors.Errorf("block %s has no output port %q", b.name, port)
	}
	args := stream.DefaultBufferManagerArgs()
	args.BufferSize = b.sizing.BufferSize()
	manager, err := stream.NewBufferManager(args)
	if err != nil {
		return nil, errors.WithMessagef(err, "block %s, output port %q", b.name, port)
	}
	if klog.V(1).Enabled() {
		klog.Infof("%s: output port %q (domain %q, downstream domain %q) uses slabs of %s (%d elements of %s)",
			b.name, port, out.Domain(), domain, humanize.IBytes(uint64(args.BufferSize)),
			max(1, args.BufferSize/out.DType().Size()), out.DType())
	}
	return manager, nil
}
