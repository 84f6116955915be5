// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/flowarray/pkg/blocks"
	"github.com/gomlx/flowarray/pkg/flow"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type scaleOptions struct {
	samples, switchAt int
	factor, switchTo  float64
	labelID           string
}

func newScaleCmd() *cobra.Command {
	opts := scaleOptions{}
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Scale a stream of ones, switching the factor with a label",
		Long: "Scale a stream of ones. A label with id --label-id attached to the sample --switch-at changes " +
			"the factor to --switch-to from that sample on.",
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScale(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.samples, "samples", 20, "Number of samples.")
	cmd.Flags().Float64Var(&opts.factor, "factor", 2, "Initial scale factor.")
	cmd.Flags().StringVar(&opts.labelID, "label-id", "gain", "Id of the labels that change the factor. "+
		"Empty disables label updates.")
	cmd.Flags().IntVar(&opts.switchAt, "switch-at", 10, "Sample where the label is attached.")
	cmd.Flags().Float64Var(&opts.switchTo, "switch-to", 0.5, "Factor carried by the label.")
	return cmd
}

// run is a sequence of equal values.
type run struct {
	start, count int
	value        float32
}

func runs(values []float32) []run {
	var result []run
	for ii, v := range values {
		if len(result) > 0 && result[len(result)-1].value == v {
			result[len(result)-1].count++
			continue
		}
		result = append(result, run{start: ii, count: 1, value: v})
	}
	return result
}

func runScale(ctx context.Context, w io.Writer, opts scaleOptions) error {
	if opts.samples <= 0 {
		return errors.Errorf("--samples must be positive, got %d", opts.samples)
	}
	deviceCtx, err := newContext()
	if err != nil {
		return err
	}
	feeder := flow.NewFeeder(deviceCtx, stream.Float32)
	scale, err := blocks.NewScale(deviceCtx, stream.Float32, opts.factor)
	if err != nil {
		return err
	}
	scale.SetLabelID(opts.labelID)
	err = scale.Connect(blocks.ScaleFactorChanged, func(args ...any) {
		fmt.Fprintf(w, "factor changed to %v\n", args[0])
	})
	if err != nil {
		return err
	}
	collector := flow.NewCollector(deviceCtx, stream.Float32)
	topology := flow.New()
	if err := topology.Connect(feeder, 0, scale, 0); err != nil {
		return err
	}
	if err := topology.Connect(scale, 0, collector, 0); err != nil {
		return err
	}

	ones := make([]float32, opts.samples)
	for ii := range ones {
		ones[ii] = 1
	}
	var labels []stream.Label
	if opts.switchAt >= 0 && opts.switchAt < opts.samples {
		labels = append(labels, stream.Label{ID: opts.labelID, Data: opts.switchTo, Index: opts.switchAt})
	}
	if err := feeder.Feed(stream.MakeChunk(ones), labels...); err != nil {
		return err
	}
	if err := topology.Run(ctx); err != nil {
		return err
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Scaled %s samples on %s", humanize.Comma(int64(opts.samples)), deviceCtx)))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"First sample", "Samples", "Value"})
	for _, r := range runs(stream.Values[float32](collector.Buffer())) {
		table.Append([]string{fmt.Sprint(r.start), fmt.Sprint(r.count), fmt.Sprint(r.value)})
	}
	table.Render()
	return nil
}
