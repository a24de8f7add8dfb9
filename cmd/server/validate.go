package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
	"github.com/KevinKickass/HotmockBridge/internal/ports"
	"github.com/KevinKickass/HotmockBridge/internal/setting"
)

var validateCmd = &cobra.Command{
	Use:   "validate <setting-file>",
	Short: "Check a board setting file and list the ports it creates",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	loader, err := setting.NewLoader(zap.NewNop())
	if err != nil {
		return err
	}

	s, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "board: %s\n", s.Board)
	for _, addr := range s.Active {
		fmt.Fprintf(out, "  %s  %s", addr, ports.PortName(s.Board, addr))
		if addr.Type == hotmock.PI {
			fmt.Fprintf(out, ", %s", ports.ResetPortName(s.Board, addr))
		}
		fmt.Fprintln(out)
	}
	if len(s.AO) > 0 {
		fmt.Fprintf(out, "  AO %v (no ports)\n", s.AO)
	}
	return nil
}
