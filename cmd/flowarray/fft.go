// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/flowarray/backends"
	"github.com/gomlx/flowarray/pkg/blocks"
	"github.com/gomlx/flowarray/pkg/flow"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type fftOptions struct {
	bins, channels, tone int
	norm                 float64
}

func newFFTCmd() *cobra.Command {
	opts := fftOptions{}
	cmd := &cobra.Command{
		Use:   "fft",
		Short: "Feed a tone per channel through an FFT node, and report the peak bin of each channel",
		Long: "Feed a complex tone per channel through an FFT node, and report the peak bin of each channel.\n" +
			"Channel c carries the tone (--tone + c) modulo --bins. The peak is found by an abs node followed by " +
			"one max node per channel.",
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFFT(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.bins, "bins", 1024, "Number of FFT bins.")
	cmd.Flags().IntVar(&opts.channels, "channels", 1, "Number of channels, transformed in one batch.")
	cmd.Flags().IntVar(&opts.tone, "tone", 17, "Frequency bin of the tone of the first channel.")
	cmd.Flags().Float64Var(&opts.norm, "norm", 1.0, "FFT normalization factor.")
	return cmd
}

// tone returns numBins samples of a complex tone at the given bin.
func tone(numBins, bin int) []complex64 {
	samples := make([]complex64, numBins)
	for ii := range samples {
		samples[ii] = complex64(cmplx.Exp(complex(0, 2*math.Pi*float64(bin*ii)/float64(numBins))))
	}
	return samples
}

func runFFT(ctx context.Context, w io.Writer, opts fftOptions) error {
	if opts.bins <= 0 || opts.channels <= 0 {
		return errors.Errorf("--bins and --channels must be positive, got %d and %d", opts.bins, opts.channels)
	}
	deviceCtx, err := newContext()
	if err != nil {
		return err
	}
	fft, err := blocks.NewFFT(deviceCtx, stream.ComplexFloat32, opts.bins, opts.norm, opts.channels, false)
	if err != nil {
		return err
	}
	abs, err := blocks.NewOneToOne(deviceCtx, backends.OpTypeAbs, stream.ComplexFloat32, opts.channels)
	if err != nil {
		return err
	}
	topology := flow.New()
	collectors := make([]*flow.Collector, opts.channels)
	for channel := range opts.channels {
		feeder := flow.NewFeeder(deviceCtx, stream.ComplexFloat32)
		if err := feeder.Feed(stream.MakeChunk(tone(opts.bins, (opts.tone+channel)%opts.bins))); err != nil {
			return err
		}
		maxNode, err := blocks.NewMax(deviceCtx, stream.Float32)
		if err != nil {
			return err
		}
		collectors[channel] = flow.NewCollector(deviceCtx, stream.Float32)
		for _, edge := range []flow.Edge{
			{Src: feeder, SrcPort: 0, Dst: fft, DstPort: channel},
			{Src: fft, SrcPort: channel, Dst: abs, DstPort: channel},
			{Src: abs, SrcPort: channel, Dst: maxNode, DstPort: 0},
			{Src: maxNode, SrcPort: 0, Dst: collectors[channel], DstPort: 0},
		} {
			if err := topology.Connect(edge.Src, edge.SrcPort, edge.Dst, edge.DstPort); err != nil {
				return err
			}
		}
	}
	if err := topology.Run(ctx); err != nil {
		return err
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("FFT %s bins on %s", humanize.Comma(int64(opts.bins)), deviceCtx)))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Channel", "Tone", "Peak bin", "Magnitude"})
	for channel, collector := range collectors {
		// Large transforms may span several output slabs, each with its own max label.
		peak, magnitude := -1, float32(0)
		for _, label := range collector.Labels() {
			value, ok := label.Data.(float32)
			if label.ID == blocks.MaxLabelID && ok && (peak < 0 || value > magnitude) {
				peak, magnitude = label.Index, value
			}
		}
		table.Append([]string{fmt.Sprint(channel), fmt.Sprint((opts.tone + channel) % opts.bins),
			fmt.Sprint(peak), fmt.Sprintf("%.2f", magnitude)})
	}
	table.Render()
	return nil
}
