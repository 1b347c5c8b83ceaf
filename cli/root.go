package cli

import (
	"github.com/spf13/cobra"

	"github.com/edgesim/edgesim/pkg/logger"
)

// NewRootCmd builds the edgesim command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "edgesim",
		Short: "edgesim - local simulator for cloud-function deployments",
		Long: "edgesim compiles a deployment descriptor (TOML/JSONC) into a local worker " +
			"simulator for integration testing and development.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
			if err != nil {
				return err
			}
			logger.SetupLogger(logLevel, logJSON, logSource)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().Bool("log-source", false, "Report source locations in logs")

	rootCmd.AddCommand(NewDevCmd())
	return rootCmd
}
