// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// flowarray lists the devices available to the array bridge, and runs small demonstration graphs.
//
//	flowarray devices
//	flowarray fft --bins 1024 --channels 2 --tone 17
//	flowarray scale --factor 2 --label-id gain --switch-at 10 --switch-to 0.5
//
// The backend is selected with --backend and --device, or with the FLOWARRAY_BACKEND environment variable.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/flowarray/backends"
	_ "github.com/gomlx/flowarray/backends/default"
	"github.com/gomlx/flowarray/pkg/device"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	flagBackend string
	flagDevice  string

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).Bold(true)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "flowarray",
		Short:         "Streaming dataflow to device array bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	goFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(goFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(goFlags)
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Backend to run the nodes on, e.g. \"cpu\". "+
		"Defaults to the one selected by "+backends.FLOWARRAY_BACKEND+", or the first available.")
	rootCmd.PersistentFlags().StringVar(&flagDevice, "device", "", "Device of the backend to run the nodes on. "+
		"Defaults to the first device.")
	rootCmd.AddCommand(newDevicesCmd(), newFFTCmd(), newScaleCmd())
	return rootCmd
}

// newContext returns the device context selected by the --backend and --device flags.
func newContext() (*device.Context, error) {
	ctx, err := device.NewContext(nil)
	if err != nil {
		return nil, err
	}
	if flagBackend != "" {
		if err := ctx.SetBackend(flagBackend); err != nil {
			return nil, err
		}
	}
	if flagDevice != "" {
		if err := ctx.SetDevice(flagDevice); err != nil {
			return nil, err
		}
	}
	klog.V(1).Infof("using %s", ctx)
	return ctx, nil
}
