package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrAmbiguousID is returned when a run id prefix matches more than one run.
var ErrAmbiguousID = errors.New("ambiguous run id")

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// StartRun inserts run in the running state. An empty ID is assigned a new
// UUID. The stored run is returned.
func (s *Store) StartRun(ctx context.Context, run Run) (*Run, error) {
	if strings.TrimSpace(run.VideoName) == "" {
		return nil, errors.New("start run: video name is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = StatusRunning

	_, err := s.exec(ctx,
		`INSERT INTO runs (
            id, video_name, video_path, output_dir, model, status, frames_planned, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.VideoName,
		run.VideoPath,
		nullableString(run.OutputDir),
		nullableString(run.Model),
		run.Status,
		run.FramesPlanned,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, run.ID)
}

// SetPlanned updates the number of frames the run will attempt.
func (s *Store) SetPlanned(ctx context.Context, runID string, planned int) error {
	return s.updateRun(ctx, runID, `UPDATE runs SET frames_planned = ? WHERE id = ?`, planned, runID)
}

// RecordFrame upserts the result for one frame of a run and refreshes the
// run's analyzed and skipped counters.
func (s *Store) RecordFrame(ctx context.Context, runID string, frame FrameResult) error {
	if frame.Outcome == "" {
		frame.Outcome = OutcomeAnalyzed
	}
	var score any
	if frame.Score != nil {
		score = *frame.Score
	}
	_, err := s.exec(ctx,
		`INSERT INTO frame_results (
            run_id, frame_index, source_frame, timestamp, outcome, score, formation, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, frame_index) DO UPDATE SET
            source_frame = excluded.source_frame,
            timestamp = excluded.timestamp,
            outcome = excluded.outcome,
            score = excluded.score,
            formation = excluded.formation,
            error_message = excluded.error_message`,
		runID,
		frame.FrameIndex,
		frame.SourceFrame,
		frame.TimestampSeconds,
		frame.Outcome,
		score,
		nullableString(frame.Formation),
		nullableString(frame.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("record frame %d: %w", frame.FrameIndex, err)
	}
	return s.updateRun(ctx, runID,
		`UPDATE runs SET
            frames_analyzed = (SELECT COUNT(1) FROM frame_results WHERE run_id = ? AND outcome = ?),
            frames_skipped = (SELECT COUNT(1) FROM frame_results WHERE run_id = ? AND outcome = ?)
        WHERE id = ?`,
		runID, OutcomeAnalyzed, runID, OutcomeSkipped, runID,
	)
}

// Completion is the verdict recorded when a run finishes successfully.
type Completion struct {
	AverageScore    float64
	Rating          string
	BenchmarkPassed bool
	// SummaryJSON is the machine-readable summary document.
	SummaryJSON []byte
}

// CompleteRun marks the run completed and stores its summary.
func (s *Store) CompleteRun(ctx context.Context, runID string, result Completion) error {
	now := formatTime(time.Now())
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin complete tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			`UPDATE runs SET status = ?, average_score = ?, rating = ?, benchmark_passed = ?,
                error_message = NULL, finished_at = ?
            WHERE id = ?`,
			StatusCompleted, result.AverageScore, result.Rating, boolToInt(result.BenchmarkPassed), now, runID,
		)
		if err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
		if err := requireRow(res, runID); err != nil {
			return err
		}
		if len(result.SummaryJSON) > 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO summaries (run_id, summary_json, created_at) VALUES (?, ?, ?)
                ON CONFLICT(run_id) DO UPDATE SET summary_json = excluded.summary_json, created_at = excluded.created_at`,
				runID, string(result.SummaryJSON), now,
			); err != nil {
				return fmt.Errorf("store summary: %w", err)
			}
		}
		return tx.Commit()
	})
}

// FailRun marks the run failed with status and the error text.
func (s *Store) FailRun(ctx context.Context, runID string, status Status, message string) error {
	if status == "" || status == StatusRunning || status == StatusCompleted {
		status = StatusFailed
	}
	return s.updateRun(ctx, runID,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status, nullableString(message), formatTime(time.Now()), runID,
	)
}

// MarkInterrupted fails every run for outputDir still marked running. Callers
// must hold the output directory lock, so no live process owns those runs.
func (s *Store) MarkInterrupted(ctx context.Context, outputDir string) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE status = ? AND output_dir = ?`,
		StatusFailed, InterruptedReason, formatTime(time.Now()), StatusRunning, outputDir,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) updateRun(ctx context.Context, runID, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	return requireRow(res, runID)
}

func requireRow(res sql.Result, runID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}
