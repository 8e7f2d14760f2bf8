package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lockerslot/db"
	"lockerslot/trainer"
)

func newTrainCmd() *cobra.Command {
	var (
		datasetPath string
		modelPath   string
		modelType   string
		testRatio   float64
		nEstimators int
		maxDepth    int
		seed        int64
		logDBPath   string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the classifier from a labelled CSV and save the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			flags := cmd.Flags()
			if flags.Changed("dataset") {
				cfg.Training.DatasetPath = datasetPath
			}
			if flags.Changed("model-path") {
				cfg.Model.Path = modelPath
			}
			if flags.Changed("model-type") {
				cfg.Model.Type = modelType
			}
			if flags.Changed("test-ratio") {
				cfg.Training.TestRatio = testRatio
			}
			if flags.Changed("n-estimators") {
				cfg.Training.NEstimators = nEstimators
			}
			if flags.Changed("max-depth") {
				cfg.Training.MaxDepth = maxDepth
			}
			if flags.Changed("seed") {
				cfg.Training.Seed = seed
			}
			if flags.Changed("log-db") {
				cfg.Training.LogDBPath = logDBPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var history trainer.TrainingLogger
			if cfg.Training.LogDBPath != "" {
				history = trainingLogFile(cfg.Training.LogDBPath)
			}

			t := trainer.New(trainer.Config{
				DatasetPath: cfg.Training.DatasetPath,
				ModelType:   cfg.Model.Type,
				ModelPath:   cfg.Model.Path,
				TestRatio:   cfg.Training.TestRatio,
				NEstimators: cfg.Training.NEstimators,
				MaxDepth:    cfg.Training.MaxDepth,
				Seed:        cfg.Training.Seed,
			}, logger, history)

			report, err := t.Run(cmd.Context())
			if err != nil {
				logger.Error("training failed", zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model trained and saved as %s\n", report.ModelPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&datasetPath, "dataset", "", "labelled training CSV")
	f.StringVar(&modelPath, "model-path", "", "model artifact output path")
	f.StringVar(&modelType, "model-type", "", "random_forest or decision_tree")
	f.Float64Var(&testRatio, "test-ratio", 0.2, "holdout share of rows")
	f.IntVar(&nEstimators, "n-estimators", 100, "number of trees")
	f.IntVar(&maxDepth, "max-depth", 0, "maximum tree depth, 0 for unlimited")
	f.Int64Var(&seed, "seed", 42, "random seed for the split and the forest")
	f.StringVar(&logDBPath, "log-db", "", "SQLite training log path")
	return cmd
}

// trainingLogFile opens the SQLite training log only when a finished run is
// recorded, so a failed run leaves no database file behind.
type trainingLogFile string

func (path trainingLogFile) SaveTrainingLog(ctx context.Context, log db.TrainingLog) error {
	store, err := db.Open(string(path))
	if err != nil {
		return fmt.Errorf("open training log: %w", err)
	}
	defer store.Close()
	return store.SaveTrainingLog(ctx, log)
}
