package main

import (
	"fmt"

	"github.com/spf13/cobra"

	loopmetrics "github.com/loopmetrics/loopmetrics-go"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "loopmetrics version %s\n", loopmetrics.Version)
		},
	}
}
