// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/gomlx/flowarray/pkg/stream"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the backends and devices available",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDevices(cmd.OutOrStdout(), device.DefaultCatalog())
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func listDevices(w io.Writer, catalog *device.Catalog) error {
	fmt.Fprintln(w, titleStyle.Render("Devices"))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Backend", "#", "Name", "Float64", "Float16", "Shared memory"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, entry := range catalog.Entries() {
		table.Append([]string{
			entry.Kind.String(), strconv.Itoa(int(entry.Index)), entry.Name,
			yesNo(entry.Float64), yesNo(entry.Float16), yesNo(entry.SharedMemory),
		})
	}
	table.Render()
	fmt.Fprintf(w, "\nDefault output slab: %s\n", humanize.IBytes(uint64(stream.DefaultBufferSize)))

	skipped := multierr.Errors(catalog.Err())
	if len(skipped) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Skipped backends"))
		for _, err := range skipped {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}
	if catalog.Len() == 0 {
		return device.ErrNoDeviceFound
	}
	return nil
}
