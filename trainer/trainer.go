// Package trainer fits the locker slot classifier from a labelled dataset and
// writes the model artifact the predictor loads at startup.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lockerslot/db"
	"lockerslot/ml"
)

type Config struct {
	DatasetPath string
	ModelType   string
	ModelPath   string
	TestRatio   float64
	NEstimators int
	MaxDepth    int
	Seed        int64
}

// Report summarises one completed run.
type Report struct {
	ModelType     string
	ModelPath     string
	TrainRows     int
	HoldoutRows   int
	Holdout       ml.Metrics
	TrainedAt     time.Time
	TrainDuration time.Duration
}

// TrainingLogger records completed runs. *db.Store satisfies it.
type TrainingLogger interface {
	SaveTrainingLog(ctx context.Context, log db.TrainingLog) error
}

type Trainer struct {
	cfg     Config
	logger  *zap.Logger
	history TrainingLogger
}

// New returns a Trainer. history may be nil to skip the training log.
func New(cfg Config, logger *zap.Logger, history TrainingLogger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{cfg: cfg, logger: logger, history: history}
}

// Run executes one training pass. Nothing is written unless the dataset
// parses and the model fits; the artifact is replaced atomically.
func (t *Trainer) Run(ctx context.Context) (Report, error) {
	if t.cfg.DatasetPath == "" {
		return Report{}, errors.New("dataset path is required")
	}
	if t.cfg.ModelPath == "" {
		return Report{}, errors.New("model path is required")
	}

	ds, err := ml.LoadCSV(t.cfg.DatasetPath)
	if err != nil {
		return Report{}, err
	}
	t.logger.Info("dataset loaded",
		zap.String("path", t.cfg.DatasetPath),
		zap.Int("rows", ds.Len()),
		zap.Float64("positive_rate", ml.PositiveRate(ds)),
	)
	for _, s := range ml.Describe(ds) {
		t.logger.Debug("feature summary",
			zap.String("feature", s.Name),
			zap.Float64("min", s.Min),
			zap.Float64("max", s.Max),
			zap.Float64("mean", s.Mean),
		)
	}

	train, holdout := ds.Split(t.cfg.TestRatio, t.cfg.Seed)

	model, err := ml.NewModel(t.cfg.ModelType, ml.TrainParams{
		NEstimators: t.cfg.NEstimators,
		MaxDepth:    t.cfg.MaxDepth,
		Seed:        t.cfg.Seed,
	})
	if err != nil {
		return Report{}, err
	}

	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	start := time.Now()
	if err := model.Train(train.Rows(), train.Y); err != nil {
		return Report{}, fmt.Errorf("fit model: %w", err)
	}
	elapsed := time.Since(start)

	metrics, err := ml.Evaluate(model, holdout)
	if err != nil {
		return Report{}, fmt.Errorf("evaluate holdout: %w", err)
	}

	if err := model.Save(t.cfg.ModelPath); err != nil {
		return Report{}, fmt.Errorf("save model: %w", err)
	}

	report := Report{
		ModelType:     modelType(t.cfg.ModelType),
		ModelPath:     t.cfg.ModelPath,
		TrainRows:     train.Len(),
		HoldoutRows:   holdout.Len(),
		Holdout:       metrics,
		TrainedAt:     time.Now().UTC(),
		TrainDuration: elapsed,
	}
	t.logger.Info("model trained and saved",
		zap.String("model_type", report.ModelType),
		zap.String("path", report.ModelPath),
		zap.Int("train_rows", report.TrainRows),
		zap.Int("holdout_rows", report.HoldoutRows),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall),
		zap.Duration("duration", elapsed),
	)

	if t.history != nil {
		err := t.history.SaveTrainingLog(ctx, db.TrainingLog{
			ModelName:     report.ModelType,
			ModelPath:     report.ModelPath,
			Accuracy:      metrics.Accuracy,
			Precision:     metrics.Precision,
			Recall:        metrics.Recall,
			TrainedAt:     report.TrainedAt,
			DataPoints:    report.TrainRows,
			HoldoutPoints: report.HoldoutRows,
			Seed:          t.cfg.Seed,
		})
		if err != nil {
			// the artifact is already in place, so the run still counts
			t.logger.Warn("failed to record training log", zap.Error(err))
		}
	}
	return report, nil
}

func modelType(name string) string {
	if name == "" {
		return ml.ModelTypeRandomForest
	}
	return name
}
