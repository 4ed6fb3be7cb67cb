package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/anchorsync/internal/cli"
	"github.com/aretw0/anchorsync/internal/config"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "anchorctl",
	Short: "anchorctl drives cloud anchor host/resolve sessions",
	Long: `anchorctl hosts a local anchor in the cloud, then resolves it again from its identifier.
Sessions can be driven interactively, over HTTP or by AI agents through MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().String("dir", "", "Directory of the file session store (overrides store.dir)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides log_level)")
}

// setupEnv builds the controller environment from the persistent flags.
// artifacts receives attached artifacts; nil logs them instead.
func setupEnv(cmd *cobra.Command, artifacts io.Writer, hooks ...domain.LifecycleHooks) (*cli.Environment, error) {
	path, _ := cmd.Flags().GetString("config")
	dir, _ := cmd.Flags().GetString("dir")
	level, _ := cmd.Flags().GetString("log-level")

	return cli.Setup(cli.Options{
		ConfigPath:     path,
		ConfigRequired: cmd.Flags().Changed("config"),
		Dir:            dir,
		LogLevel:       level,
		ArtifactOutput: artifacts,
		Hooks:          hooks,
	})
}
