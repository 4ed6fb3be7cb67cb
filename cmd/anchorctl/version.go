package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/anchorsync"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of anchorctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "anchorctl version %s\n", strings.TrimSpace(anchorsync.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
