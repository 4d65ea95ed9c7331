//go:build !rp2040

package main

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"eemon-go/errcode"
	"eemon-go/stream"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Decode snapshot frames from the telemetry UART",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if portName == "" {
				return fmt.Errorf("--port is required")
			}
			port, err := serial.Open(portName, &serial.Mode{
				BaudRate: baudRate,
				DataBits: 8,
				Parity:   serial.NoParity,
				StopBits: serial.OneStopBit,
			})
			if err != nil {
				return fmt.Errorf("open %s: %w", portName, err)
			}
			defer port.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Port: %s @ %d baud\n", portName, baudRate)
			return monitor(stream.NewReader(port), out)
		},
	}
	cmd.Flags().StringVarP(&portName, "port", "p", "", "Serial port device")
	cmd.Flags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate")
	return cmd
}

// monitor prints frames until r is exhausted. Bad frames are reported and
// skipped.
func monitor(r *stream.Reader, out io.Writer) error {
	for {
		s, err := r.Next()
		switch {
		case err == nil:
			printSnapshot(out, s)
		case errors.Is(err, io.EOF):
			return nil
		case errcode.Of(err) == errcode.BadFrame:
			log.Printf("frame dropped: %v", err)
		default:
			return err
		}
	}
}

func printSnapshot(out io.Writer, s *stream.Snapshot) {
	fmt.Fprintf(out, "#%d up=%.1fs rotary=%d\n", s.Seq, float64(s.UptimeMs)/1000, s.Rotary)
	for _, c := range s.Channels {
		fmt.Fprintf(out, "  ch%d online=%v energy=%.3f power=%.3f samples=%d\n",
			c.Index, c.Online, c.EnergyWh, c.PowerW, c.Samples)
	}
	for _, b := range s.Buttons {
		if b.Down {
			fmt.Fprintf(out, "  %s held\n", b.Name)
		}
	}
}
