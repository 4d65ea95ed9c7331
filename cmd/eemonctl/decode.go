//go:build !rp2040

package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eemon-go/drivers/ade7816"
)

// formatFor accepts either a format tag or a register name.
func formatFor(s string) (ade7816.Format, error) {
	if f, ok := ade7816.Formats[strings.ToUpper(s)]; ok {
		return f, nil
	}
	r, err := ade7816.Lookup(strings.ToUpper(s))
	if err != nil {
		return ade7816.Format{}, fmt.Errorf("%q is neither a format tag nor a register", s)
	}
	return r.Fmt, nil
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <format|register> <hex>",
		Short: "Decode big-endian register bytes",
		Example: `  eemonctl decode 32SE FFFFFF38
  eemonctl decode VERSION 02`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatFor(args[0])
			if err != nil {
				return err
			}
			raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(args[1]), "0x"))
			if err != nil {
				return fmt.Errorf("bad hex: %w", err)
			}
			v, err := f.Decode(raw)
			if err != nil {
				return fmt.Errorf("%s needs %d bytes, got %d: %w", f.Tag, f.Bytes, len(raw), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d (0x%X)\n", f.Tag, v, f.ToRaw(v))
			return nil
		},
	}
}
