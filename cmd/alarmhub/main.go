package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:          "alarmhub",
		Short:        "Live incident board hub and viewers",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); ALARMHUB_* env vars override it")

	root.AddCommand(
		newServeCmd(&cfgFile),
		newWatchCmd(),
		newAddCmd(),
		newMoveCmd(),
	)
	return root
}
