// Package store records experiment results in a SQLite database. Each
// SQLite store records a single run, identified by a random run ID.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samuelfneumann/memddpg/agent/memddpg"

	_ "modernc.org/sqlite"
)

// Episode is the record of a single finished episode
type Episode struct {
	Episode int
	Return  float64
	Length  int
}

// TrainStep is the record of a single training step of a MemDDPG
// agent. Memory losses are nil on steps where the memory was not
// trained.
type TrainStep struct {
	Step        int
	CriticLoss  float64
	ActorLoss   float64
	MemoryLoss  *float64
	InitialLoss *float64
}

// SQLite records the episodes and training steps of a run
type SQLite struct {
	path  string
	runID string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLite returns a new SQLite store for the database at path. The
// store must be initialized with Init before use.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path, runID: uuid.New().String()}
}

// RunID returns the ID of the run recorded by the store
func (s *SQLite) RunID() string {
	return s.runID
}

// Init opens the database and creates its tables if needed
func (s *SQLite) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("init: sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("init: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("init: %v", err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("init: could not create tables: %v", err)
	}

	s.db = db
	return nil
}

// StartRun records the start of the run with its configuration, which
// is stored as JSON
func (s *SQLite) StartRun(ctx context.Context, config interface{}) error {
	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("startRun: %v", err)
	}

	payload, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("startRun: could not encode config: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, config)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config = excluded.config
	`, s.runID, time.Now().UTC().Format(time.RFC3339), string(payload))
	if err != nil {
		return fmt.Errorf("startRun: %v", err)
	}
	return nil
}

// RecordEpisode records a finished episode
func (s *SQLite) RecordEpisode(ctx context.Context, e Episode) error {
	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("recordEpisode: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO episodes (run_id, episode, episode_return, length)
		VALUES (?, ?, ?, ?)
	`, s.runID, e.Episode, e.Return, e.Length)
	if err != nil {
		return fmt.Errorf("recordEpisode: %v", err)
	}
	return nil
}

// RecordTrain records the metrics of a training step. RecordTrain
// implements the memddpg.Recorder interface.
func (s *SQLite) RecordTrain(m memddpg.Metrics) error {
	return s.RecordTrainContext(context.Background(), m)
}

// RecordTrainContext records the metrics of a training step
func (s *SQLite) RecordTrainContext(ctx context.Context,
	m memddpg.Metrics) error {
	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("recordTrain: %v", err)
	}

	var memoryLoss, prefixLoss, fullLoss, diversity, initialLoss interface{}
	if m.Memory != nil {
		memoryLoss = m.Memory.Loss
		prefixLoss = m.Memory.PrefixLoss
		fullLoss = m.Memory.FullLoss
		diversity = m.Memory.Diversity
		initialLoss = m.Memory.InitialLoss
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO train_steps (run_id, step, critic_loss, actor_loss,
			memory_loss, prefix_loss, full_loss, diversity, initial_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.runID, m.Step, m.CriticLoss, m.ActorLoss, memoryLoss, prefixLoss,
		fullLoss, diversity, initialLoss)
	if err != nil {
		return fmt.Errorf("recordTrain: %v", err)
	}
	return nil
}

// Episodes returns the episodes of the run in order
func (s *SQLite) Episodes(ctx context.Context) ([]Episode, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, fmt.Errorf("episodes: %v", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT episode, episode_return, length FROM episodes
		WHERE run_id = ? ORDER BY episode
	`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("episodes: %v", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.Episode, &e.Return, &e.Length); err != nil {
			return nil, fmt.Errorf("episodes: %v", err)
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// TrainSteps returns the training steps of the run in order
func (s *SQLite) TrainSteps(ctx context.Context) ([]TrainStep, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, fmt.Errorf("trainSteps: %v", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT step, critic_loss, actor_loss, memory_loss, initial_loss
		FROM train_steps WHERE run_id = ? ORDER BY step
	`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("trainSteps: %v", err)
	}
	defer rows.Close()

	var steps []TrainStep
	for rows.Next() {
		var t TrainStep
		var memoryLoss, initialLoss sql.NullFloat64
		err := rows.Scan(&t.Step, &t.CriticLoss, &t.ActorLoss, &memoryLoss,
			&initialLoss)
		if err != nil {
			return nil, fmt.Errorf("trainSteps: %v", err)
		}
		if memoryLoss.Valid {
			t.MemoryLoss = &memoryLoss.Float64
		}
		if initialLoss.Valid {
			t.InitialLoss = &initialLoss.Float64
		}
		steps = append(steps, t)
	}
	return steps, rows.Err()
}

// Close closes the database
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLite) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			config TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			episode_return REAL NOT NULL,
			length INTEGER NOT NULL,
			PRIMARY KEY (run_id, episode)
		);
		CREATE TABLE IF NOT EXISTS train_steps (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			critic_loss REAL NOT NULL,
			actor_loss REAL NOT NULL,
			memory_loss REAL,
			prefix_loss REAL,
			full_loss REAL,
			diversity REAL,
			initial_loss REAL,
			PRIMARY KEY (run_id, step)
		);
	`)
	return err
}
