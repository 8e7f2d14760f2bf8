package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lockerslot/db"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit     int
		logDBPath string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent training runs from the training log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("log-db") {
				cfg.Training.LogDBPath = logDBPath
			}
			path := cfg.Training.LogDBPath
			if path == "" {
				return errors.New("no training log configured")
			}
			// reading must not create an empty database
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("training log: %w", err)
			}

			store, err := db.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.LoadTrainingLog(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read training log: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRAINED AT\tMODEL\tACCURACY\tPRECISION\tRECALL\tROWS\tHOLDOUT\tSEED\tPATH")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%.4f\t%d\t%d\t%d\t%s\n",
					run.TrainedAt.UTC().Format(time.RFC3339),
					run.ModelName,
					run.Accuracy,
					run.Precision,
					run.Recall,
					run.DataPoints,
					run.HoldoutPoints,
					run.Seed,
					run.ModelPath,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show, 0 for all")
	cmd.Flags().StringVar(&logDBPath, "log-db", "", "SQLite training log path")
	return cmd
}
