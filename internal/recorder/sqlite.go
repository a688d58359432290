package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"FundPulse/internal/model"
)

// SQLiteRecorder persists analysis runs to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id    TEXT NOT NULL UNIQUE,
			period_window TEXT NOT NULL,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL,
			instruments   INTEGER,
			failed        INTEGER,
			narrated      INTEGER,
			narrative     TEXT,
			narrative_err TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON analysis_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS instrument_snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id      TEXT NOT NULL,
			code            TEXT NOT NULL,
			name            TEXT,
			fetch_error     TEXT,
			last_value      REAL,
			last_timestamp  INTEGER,
			period_return   REAL,
			daily_return    REAL,
			return_3d       REAL,
			return_5d       REAL,
			consecutive_run INTEGER,
			roc_5d          REAL,
			volatility      REAL,
			ma5             REAL,
			ma10            REAL,
			ma20            REAL,
			score           REAL,
			suggestion      TEXT,
			estimate        REAL,
			estimate_pct    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_code ON instrument_snapshots(code, session_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and one snapshot per instrument in a single
// transaction.
func (r *SQLiteRecorder) RecordRun(res *model.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := 0
	for _, ir := range res.Instruments {
		if ir.FetchError != "" {
			failed++
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO analysis_runs
		(session_id, period_window, started_at, finished_at, instruments, failed, narrated, narrative, narrative_err)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		res.SessionID, string(res.Window), res.StartedAt.UnixMilli(), res.FinishedAt.UnixMilli(),
		len(res.Instruments), failed, res.Narrated, res.Narrative, res.NarrativeErr,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO instrument_snapshots
		(session_id, code, name, fetch_error, last_value, last_timestamp,
		 period_return, daily_return, return_3d, return_5d, consecutive_run, roc_5d, volatility,
		 ma5, ma10, ma20, score, suggestion, estimate, estimate_pct)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot: %w", err)
	}
	defer stmt.Close()

	for _, ir := range res.Instruments {
		args := []any{res.SessionID, ir.Code, ir.Name, ir.FetchError}
		if ind := ir.Indicators; ind != nil {
			args = append(args,
				ind.LastValue, ind.LastTimestamp,
				ind.PeriodReturn, ind.DailyReturn, ind.Return3d, ind.Return5d,
				ind.ConsecutiveRun, ind.RateOfChange5d, ind.Volatility,
				nullable(ind.MA5), nullable(ind.MA10), nullable(ind.MA20), ind.Score,
			)
		} else {
			args = append(args, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
		}
		if ir.Suggestion != nil {
			args = append(args, ir.Suggestion.Label)
		} else {
			args = append(args, nil)
		}
		if ir.Quote != nil {
			args = append(args, ir.Quote.EstimatedValue, ir.Quote.EstimatedChangePct)
		} else {
			args = append(args, nil, nil)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert snapshot %s: %w", ir.Code, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the newest runs first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(`SELECT session_id, period_window, started_at, finished_at,
		instruments, failed, narrated, COALESCE(narrative_err, '')
		FROM analysis_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s                 RunSummary
			window            string
			started, finished int64
		)
		if err := rows.Scan(&s.SessionID, &window, &started, &finished,
			&s.Instruments, &s.Failed, &s.Narrated, &s.NarrativeErr); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Window = model.PeriodWindow(window)
		s.StartedAt = time.UnixMilli(started)
		s.FinishedAt = time.UnixMilli(finished)
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
