package main

import (
	"github.com/aretw0/anchorsync/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [session-id]",
	Short: "Export the session cycle visualization",
	Long:  `Outputs a Mermaid state diagram of the host/resolve cycle. With a session ID its current mode and status are highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sessionID string
		if len(args) > 0 {
			sessionID = args[0]
		}

		env, err := setupEnv(cmd, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		return cli.GraphSession(cmd.Context(), env, cmd.OutOrStdout(), sessionID)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
