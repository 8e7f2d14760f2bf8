package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store keeps the history of trainer runs in SQLite.
type Store struct {
	db *sql.DB
}

type TrainingLog struct {
	ModelName     string    `json:"model_name"`
	ModelPath     string    `json:"model_path"`
	Accuracy      float64   `json:"accuracy"`
	Precision     float64   `json:"precision"`
	Recall        float64   `json:"recall"`
	TrainedAt     time.Time `json:"trained_at"`
	DataPoints    int       `json:"data_points"`
	HoldoutPoints int       `json:"holdout_points"`
	Seed          int64     `json:"seed"`
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        model_path TEXT,
        accuracy REAL,
        precision REAL,
        recall REAL,
        trained_at DATETIME,
        data_points INTEGER,
        holdout_points INTEGER,
        seed INTEGER
    );
    `
	if _, err := database.Exec(query); err != nil {
		if cerr := database.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) SaveTrainingLog(ctx context.Context, log TrainingLog) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (
            model_name, model_path, accuracy, precision, recall, trained_at, data_points, holdout_points, seed
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		log.ModelName,
		log.ModelPath,
		log.Accuracy,
		log.Precision,
		log.Recall,
		log.TrainedAt.UTC(),
		log.DataPoints,
		log.HoldoutPoints,
		log.Seed,
	)
	return err
}

// LoadTrainingLog returns the newest runs first. A limit <= 0 returns all.
func (s *Store) LoadTrainingLog(ctx context.Context, limit int) ([]TrainingLog, error) {
	query := `
        SELECT model_name, model_path, accuracy, precision, recall, trained_at, data_points, holdout_points, seed
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(
			&log.ModelName,
			&log.ModelPath,
			&log.Accuracy,
			&log.Precision,
			&log.Recall,
			&log.TrainedAt,
			&log.DataPoints,
			&log.HoldoutPoints,
			&log.Seed,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
