//go:build !rp2040

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"eemon-go/drivers/ade7816"
)

func newRegsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regs",
		Short: "Print the ADE7816 register map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			regs := make([]ade7816.Register, 0, len(ade7816.Registers))
			for _, r := range ade7816.Registers {
				regs = append(regs, r)
			}
			sort.Slice(regs, func(i, j int) bool {
				if regs[i].Addr != regs[j].Addr {
					return regs[i].Addr < regs[j].Addr
				}
				return regs[i].Name < regs[j].Name
			})
			out := cmd.OutOrStdout()
			for _, r := range regs {
				fmt.Fprintf(out, "0x%04X  %-10s %s\n", r.Addr, r.Name, r.Fmt.Tag)
			}
			return nil
		},
	}
}
