package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/anchorsync/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a session interactively",
	Long: `Starts the frame loop on stdin. Each line is one command:

  tap [x y z]    touch that hit a plane
  tap-miss       touch that hit nothing
  tap-ui         touch over a UI element (ignored)
  id <value>     resolve a cloud anchor identifier
  quit           stop

When input ends the loop keeps polling until no operation is in flight.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")
		quiet, _ := cmd.Flags().GetBool("quiet")

		var artifacts io.Writer
		if !jsonMode {
			artifacts = os.Stdout
		}
		env, err := setupEnv(cmd, artifacts)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = cli.Run(ctx, env, cli.RunOptions{
			SessionID: sessionID,
			JSON:      jsonMode,
			Fresh:     fresh,
			Quiet:     quiet,
			In:        os.Stdin,
			Out:       os.Stdout,
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().StringP("session", "s", "", "Session ID (overrides session from config)")
	runCmd.Flags().Bool("fresh", false, "Discard the stored session before starting")
	runCmd.Flags().BoolP("quiet", "q", false, "Skip the banner and help line")

	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
