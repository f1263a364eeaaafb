// Package cli provides the vendorchat command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/NahoooMac/wedhabesha-sub006/internal/config"
	"github.com/NahoooMac/wedhabesha-sub006/internal/logging"
)

var configFile string

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vendorchat",
		Short:         "Vendor conversation synchronizer",
		Long:          "vendorchat keeps the vendor's message threads in sync across the durable store and the realtime push channel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(
		newRunCmd(),
		newThreadsCmd(),
		newWatchCmd(),
		newSendCmd(),
	)
	return cmd
}

func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if configFile != "" {
		loader.SetConfigFile(configFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	return cfg, nil
}
