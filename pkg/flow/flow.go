// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package flow is a minimal runner for graphs of nodes: it connects output ports to input ports,
// negotiates the output buffer managers, and invokes the nodes until no more data moves.
//
// Example:
//
//	feeder := flow.NewFeeder(ctx, stream.ComplexFloat32)
//	fft := must.M1(blocks.NewFFT(ctx, stream.ComplexFloat32, 1024, 1.0, 1, false))
//	collector := flow.NewCollector(ctx, stream.ComplexFloat32)
//	topology := flow.New()
//	must.M(topology.Connect(feeder, 0, fft, 0))
//	must.M(topology.Connect(fft, 0, collector, 0))
//	must.M(feeder.Feed(stream.MakeChunk(samples)))
//	must.M(topology.Run(context.Background()))
package flow

import (
	"context"
	"runtime"
	"slices"

	"github.com/gomlx/flowarray/pkg/block"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Node is anything the topology can run: it exposes its ports through Base, and Work runs one invocation.
type Node interface {
	Base() *block.Block
	Work() error
}

// Edge connects the output port SrcPort of Src to the input port DstPort of Dst.
type Edge struct {
	Src     Node
	SrcPort int
	Dst     Node
	DstPort int
}

// Topology is a graph of nodes.
//
// Nodes are connected with Connect, and Commit (called by Run if needed) creates the buffer managers of
// every output. After Commit no more connections can be made.
type Topology struct {
	nodes     []Node
	edges     []Edge
	committed bool

	// MaxPasses limits the number of passes of Run, 0 means no limit. Set it for graphs with sources that
	// never run out of data, like blocks.Constant.
	MaxPasses int

	// Parallelism is the maximum number of nodes invoked concurrently in one pass.
	// It defaults to runtime.NumCPU().
	Parallelism int
}

// New returns an empty Topology.
func New() *Topology {
	return &Topology{Parallelism: runtime.NumCPU()}
}

// Add nodes to the topology. Connect adds the nodes it's given, so Add is only needed for isolated nodes.
func (t *Topology) Add(nodes ...Node) {
	for _, node := range nodes {
		if !slices.Contains(t.nodes, node) {
			t.nodes = append(t.nodes, node)
		}
	}
}

// Nodes returns the nodes in the order they were added.
func (t *Topology) Nodes() []Node {
	return slices.Clone(t.nodes)
}

// Edges returns the connections made so far.
func (t *Topology) Edges() []Edge {
	return slices.Clone(t.edges)
}

// Connect the output srcPort of src to the input dstPort of dst.
//
// An output can be connected to many inputs, but an input accepts only one connection.
func (t *Topology) Connect(src Node, srcPort int, dst Node, dstPort int) error {
	if t.committed {
		return errors.New("cannot connect nodes of a committed topology")
	}
	out := src.Base().Output(srcPort)
	if out == nil {
		return errors.Errorf("node %s has no output port %d", src.Base(), srcPort)
	}
	in := dst.Base().Input(dstPort)
	if in == nil {
		return errors.Errorf("node %s has no input port %d", dst.Base(), dstPort)
	}
	for _, edge := range t.edges {
		if edge.Dst == dst && edge.DstPort == dstPort {
			return errors.Errorf("input port %d of node %s is already connected to node %s", dstPort, dst.Base(),
				edge.Src.Base())
		}
	}
	if err := out.Subscribe(in); err != nil {
		return errors.WithMessagef(err, "connecting %s to %s", src.Base(), dst.Base())
	}
	t.Add(src, dst)
	t.edges = append(t.edges, Edge{Src: src, SrcPort: srcPort, Dst: dst, DstPort: dstPort})
	return nil
}

// Commit negotiates the buffer manager of every output port, once per port.
// It is called by Run if not called before.
func (t *Topology) Commit() error {
	if t.committed {
		return nil
	}
	for _, node := range t.nodes {
		b := node.Base()
		for _, out := range b.Outputs() {
			manager, err := b.OutputBufferManager(out.Name(), t.DownstreamDomain(node, out.Index()))
			if err != nil {
				return err
			}
			b.Output(out.Index()).SetBufferManager(manager)
		}
	}
	t.committed = true
	return nil
}

// DownstreamDomain returns the domain of the first node connected to output port of src, or the domain of
// the output port itself if it is not connected.
func (t *Topology) DownstreamDomain(src Node, port int) string {
	for _, edge := range t.edges {
		if edge.Src == src && edge.SrcPort == port {
			return edge.Dst.Base().Context().Domain()
		}
	}
	return src.Base().Output(port).Domain()
}

// progress returns the total number of elements that moved through the ports of the topology.
func (t *Topology) progress() int64 {
	var total int64
	for _, node := range t.nodes {
		b := node.Base()
		for ii := range len(b.Outputs()) {
			total += b.Output(ii).TotalProduced()
		}
		for ii := range len(b.Inputs()) {
			total += b.Input(ii).TotalConsumed()
		}
	}
	return total
}

// Run invokes the nodes in passes until a pass moves no data, MaxPasses is reached, a node fails or ctx
// is cancelled.
//
// Within a pass the nodes are invoked concurrently, up to Parallelism at a time.
// It returns the error of the first failed node.
func (t *Topology) Run(ctx context.Context) error {
	if err := t.Commit(); err != nil {
		return err
	}
	last := t.progress()
	for pass := 0; t.MaxPasses <= 0 || pass < t.MaxPasses; pass++ {
		g, gCtx := errgroup.WithContext(ctx)
		if t.Parallelism > 0 {
			g.SetLimit(t.Parallelism)
		}
		for _, node := range t.nodes {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				return node.Work()
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		current := t.progress()
		klog.V(2).Infof("flow: pass %d moved %d elements", pass, current-last)
		if current == last {
			return nil
		}
		last = current
	}
	klog.V(1).Infof("flow: stopped after %d passes", t.MaxPasses)
	return nil
}
