package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, video_name, video_path, output_dir, model, status, frames_planned, frames_analyzed, frames_skipped, average_score, rating, benchmark_passed, error_message, started_at, finished_at"

// GetRun fetches a run by its full id. A missing run returns nil without error.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindRun resolves a full id or a unique id prefix. A prefix matching several
// runs returns ErrAmbiguousID; no match returns nil.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, errors.New("run id is required")
	}
	if run, err := s.GetRun(ctx, idOrPrefix); err != nil || run != nil {
		return run, err
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(idOrPrefix)
	runs, err := s.queryRuns(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY started_at DESC LIMIT 2`,
		escaped+"%",
	)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, nil
	case 1:
		return &runs[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, idOrPrefix)
	}
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Video restricts results to one video name.
	Video string
	// Status restricts results to one status.
	Status Status
	// Limit caps the result count; zero means no limit.
	Limit int
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var (
		clauses []string
		args    []any
	)
	if opts.Video != "" {
		clauses = append(clauses, "video_name = ?")
		args = append(args, opts.Video)
	}
	if opts.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, opts.Status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	return s.queryRuns(ctx, query, args...)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Frames returns the recorded frame results of a run in extraction order.
func (s *Store) Frames(ctx context.Context, runID string) ([]FrameResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame_index, source_frame, timestamp, outcome, score, formation, error_message
        FROM frame_results WHERE run_id = ? ORDER BY frame_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var frames []FrameResult
	for rows.Next() {
		var (
			frame     FrameResult
			score     sql.NullInt64
			formation sql.NullString
			message   sql.NullString
		)
		if err := rows.Scan(&frame.FrameIndex, &frame.SourceFrame, &frame.TimestampSeconds,
			&frame.Outcome, &score, &formation, &message); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if score.Valid {
			v := int(score.Int64)
			frame.Score = &v
		}
		frame.Formation = formation.String
		frame.ErrorMessage = message.String
		frames = append(frames, frame)
	}
	return frames, rows.Err()
}

// Summary returns the stored summary JSON of a completed run, or nil when the
// run has none.
func (s *Store) Summary(ctx context.Context, runID string) ([]byte, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT summary_json FROM summaries WHERE run_id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return []byte(raw), nil
}

// Stats counts runs grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	stats := make(Stats)
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// DeleteRun removes a run with its frames and summary.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.exec(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return requireRow(res, runID)
}

// Prune deletes finished runs that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx,
		`DELETE FROM runs WHERE status != ? AND started_at < ?`,
		StatusRunning, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run        Run
		outputDir  sql.NullString
		model      sql.NullString
		average    sql.NullFloat64
		rating     sql.NullString
		passed     sql.NullInt64
		message    sql.NullString
		startedRaw string
		finished   sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.VideoName,
		&run.VideoPath,
		&outputDir,
		&model,
		&run.Status,
		&run.FramesPlanned,
		&run.FramesAnalyzed,
		&run.FramesSkipped,
		&average,
		&rating,
		&passed,
		&message,
		&startedRaw,
		&finished,
	); err != nil {
		return nil, err
	}
	run.OutputDir = outputDir.String
	run.Model = model.String
	run.Rating = rating.String
	run.ErrorMessage = message.String
	if average.Valid {
		v := average.Float64
		run.AverageScore = &v
	}
	if passed.Valid {
		v := passed.Int64 != 0
		run.BenchmarkPassed = &v
	}
	run.StartedAt = parseTime(startedRaw)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return &run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
