package cli

import (
	"os"

	"github.com/ostafen/vdisk/internal/logger"
	"github.com/spf13/cobra"
)

const AppName = "vdisk"

var (
	logLevel string
	log      *logger.Logger
)

// Execute builds the root command and runs it.
func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - virtual disk image and partition layout tool",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logger.New(os.Stderr, logger.ParseLevel(logLevel))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "v", "WARN", "log level: DEBUG, INFO, WARN, ERROR")

	rootCmd.AddCommand(
		newInfoCommand(),
		newPartitionsCommand(),
		newCreateCommand(),
		newExtractCommand(),
	)

	return rootCmd.Execute()
}
