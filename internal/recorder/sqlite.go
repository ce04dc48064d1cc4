package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phuslu/log"
	_ "modernc.org/sqlite"

	"MarketDigest/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			trigger         TEXT,
			started_at      INTEGER NOT NULL,
			finished_at     INTEGER,
			report_path     TEXT,
			instruments     INTEGER,
			oracle_count    INTEGER,
			fallback_count  INTEGER,
			sentinel_count  INTEGER,
			has_usable_data INTEGER,
			delivered       INTEGER,
			delivery_note   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS analyses (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			topic      TEXT,
			provenance TEXT,
			outcome    TEXT,
			phase      TEXT,
			position   TEXT,
			duration   TEXT,
			text       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_run ON analyses(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished sql.NullInt64
	if !run.FinishedAt.IsZero() {
		finished = sql.NullInt64{Int64: run.FinishedAt.Unix(), Valid: true}
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO runs
		(id, trigger, started_at, finished_at, report_path, instruments,
		 oracle_count, fallback_count, sentinel_count, has_usable_data, delivered, delivery_note)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Trigger, run.StartedAt.Unix(), finished, run.ReportPath, run.Instruments,
		run.OracleCount, run.FallbackCount, run.SentinelCount,
		run.HasUsableData, run.Delivered, run.DeliveryNote,
	)
	return err
}

func (r *SQLiteRecorder) RecordAnalyses(runID string, results []model.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analyses
		(run_id, topic, provenance, outcome, phase, position, duration, text)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		var phase, position, duration sql.NullString
		if s := res.Structured; s != nil {
			phase = sql.NullString{String: s.PhaseText(), Valid: true}
			position = sql.NullString{String: s.PositionText(), Valid: true}
			duration = sql.NullString{String: s.DurationText(), Valid: true}
		}
		if _, err := stmt.Exec(runID, res.Topic, string(res.Provenance), res.Outcome,
			phase, position, duration, res.Text); err != nil {
			return fmt.Errorf("insert analysis %s: %w", res.Topic, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LastRun() (*model.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run      model.RunSummary
		started  int64
		finished sql.NullInt64
	)
	err := r.db.QueryRow(`SELECT id, trigger, started_at, finished_at, report_path, instruments,
		oracle_count, fallback_count, sentinel_count, has_usable_data, delivered, delivery_note
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(
		&run.ID, &run.Trigger, &started, &finished, &run.ReportPath, &run.Instruments,
		&run.OracleCount, &run.FallbackCount, &run.SentinelCount,
		&run.HasUsableData, &run.Delivered, &run.DeliveryNote,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	run.StartedAt = time.Unix(started, 0)
	if finished.Valid {
		run.FinishedAt = time.Unix(finished.Int64, 0)
	}
	return &run, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
