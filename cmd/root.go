package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lockerslot/config"
	"lockerslot/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lockerslot",
		Short:        "Locker slot assignment classifier",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "configuration file (YAML)")
	root.AddCommand(newServeCmd(), newTrainCmd(), newHistoryCmd())
	return root
}

// Execute runs the CLI.
func Execute() error { return newRootCmd().Execute() }

func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
