//go:build !rp2040

// eemonctl is the host companion to the energy monitor: it prints the chip
// register map, decodes register values, runs the acquisition core against
// simulated chips and reads snapshot frames off the telemetry UART.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	portName string
	baudRate int
	board    string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "eemonctl",
		Short:        "Energy monitor host tool",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&board, "board", "B", "eemon42", "Board profile")
	root.AddCommand(newRegsCmd(), newDecodeCmd(), newSimCmd(), newMonitorCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
