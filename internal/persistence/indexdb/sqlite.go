// Package indexdb keeps a queryable SQLite index of evaluation runs and
// their per-round audit trail. Secondary to the transcript: writes are
// asynchronous and dropped rather than allowed to stall a run.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"blockinstruct.ai/internal/eval"
)

type Index struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqRun reqKind = iota + 1
	reqRound
)

type req struct {
	kind  reqKind
	run   runRow
	round roundRow
}

type runRow struct {
	RunID        string
	Accuracy     float64
	AvgQuestions float64
	RecordedAt   string
}

type roundRow struct {
	RunID       string
	Round       int
	Speaker     string
	TrialID     string
	Instruction string
	Response    string
	Feedback    string
	Correct     *bool
	Questions   int
}

func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Index{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			accuracy REAL NOT NULL,
			avg_questions REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			run_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			speaker TEXT NOT NULL,
			trial_id TEXT NOT NULL,
			instruction TEXT NOT NULL,
			response TEXT NOT NULL,
			feedback TEXT NOT NULL,
			correct INTEGER,
			questions INTEGER NOT NULL,
			PRIMARY KEY (run_id, round)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_trial ON rounds(trial_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordResult enqueues the run summary and its round audit trail. Never
// blocks the caller.
func (s *Index) RecordResult(res *eval.RunResult) {
	if s == nil || s.closed.Load() {
		return
	}
	run := runRow{
		RunID:        res.RunID,
		Accuracy:     res.Accuracy,
		AvgQuestions: res.AvgQuestionsPerInstruction,
		RecordedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqRun, run: run}:
	default:
		// Drop if the indexer falls behind; the transcript remains the
		// source of truth.
		return
	}
	for _, rr := range res.Rounds {
		row := roundRow{
			RunID:       res.RunID,
			Round:       rr.Round,
			Speaker:     rr.Speaker,
			TrialID:     rr.TrialID,
			Instruction: rr.Instruction,
			Response:    rr.Response,
			Feedback:    rr.Feedback,
			Correct:     rr.Correct,
			Questions:   rr.Questions,
		}
		select {
		case s.ch <- req{kind: reqRound, round: row}:
		default:
		}
	}
}

// Close drains pending writes and closes the database. Idempotent.
func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Index) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqRun:
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO runs (run_id, accuracy, avg_questions, recorded_at) VALUES (?,?,?,?)`,
				r.run.RunID, r.run.Accuracy, r.run.AvgQuestions, r.run.RecordedAt,
			)
		case reqRound:
			var correct any
			if r.round.Correct != nil {
				if *r.round.Correct {
					correct = 1
				} else {
					correct = 0
				}
			}
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO rounds
				 (run_id, round, speaker, trial_id, instruction, response, feedback, correct, questions)
				 VALUES (?,?,?,?,?,?,?,?,?)`,
				r.round.RunID, r.round.Round, r.round.Speaker, r.round.TrialID,
				r.round.Instruction, r.round.Response, r.round.Feedback, correct, r.round.Questions,
			)
		}
	}
}

// RunSummary is the stored run-level view.
type RunSummary struct {
	RunID        string
	Accuracy     float64
	AvgQuestions float64
	Rounds       int
}

// Runs lists stored runs, newest first.
func (s *Index) Runs() ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT r.run_id, r.accuracy, r.avg_questions,
		       (SELECT COUNT(*) FROM rounds d WHERE d.run_id = r.run_id)
		FROM runs r ORDER BY r.recorded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.RunID, &rs.Accuracy, &rs.AvgQuestions, &rs.Rounds); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// RoundsForRun returns the stored audit trail, in round order.
func (s *Index) RoundsForRun(runID string) ([]eval.RoundRecord, error) {
	rows, err := s.db.Query(`
		SELECT round, speaker, trial_id, instruction, response, feedback, correct, questions
		FROM rounds WHERE run_id = ? ORDER BY round`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []eval.RoundRecord
	for rows.Next() {
		var rr eval.RoundRecord
		var correct sql.NullInt64
		if err := rows.Scan(&rr.Round, &rr.Speaker, &rr.TrialID, &rr.Instruction,
			&rr.Response, &rr.Feedback, &correct, &rr.Questions); err != nil {
			return nil, err
		}
		if correct.Valid {
			v := correct.Int64 == 1
			rr.Correct = &v
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
