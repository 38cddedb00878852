package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livestate/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "livestate",
		Short: "Fine-grained reactive state, served live",
		Long: `livestate wraps a state document so that writes are observable,
streams path subscriptions to websocket clients, and applies remote
assignment events from HTTP or Redis.

  • replay   run a state script and print every emission
  • serve    host a state document over HTTP and websocket`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		replayCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}
