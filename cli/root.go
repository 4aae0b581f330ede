package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root plcvisualizer command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plcvisualizer",
		Short: "Live PLC parameter monitoring backend",
		Long: `plcvisualizer serves the live parameter list of a production line to
operator dashboards, raises threshold alerts and records reading history.
Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newSeedCmd(),
		newExportCmd(),
	)

	return root
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
