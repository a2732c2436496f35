package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, video_path, deck_path, status, error_message, anchor_frame, frame_rate, page_count, scanned_frames, ocr_calls, subtitle_path, merged_path, chapters_path, created_at, finished_at"

// Begin inserts a running entry for a new job and returns it with a fresh ID.
func (s *Store) Begin(ctx context.Context, videoPath, deckPath string) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		VideoPath:   videoPath,
		DeckPath:    deckPath,
		Status:      StatusRunning,
		AnchorFrame: -1,
		CreatedAt:   time.Now().UTC(),
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (id, video_path, deck_path, status, anchor_frame, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, run.VideoPath, run.DeckPath, string(run.Status), run.AnchorFrame, formatTime(run.CreatedAt),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Record stores the final state of run together with its transitions,
// replacing any transitions stored earlier. A run without an ID is
// assigned one and inserted.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("record run: nil run")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status.IsTerminal() && run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	return retryOnBusy(ctx, func() error {
		return s.record(ctx, run)
	})
}

func (s *Store) record(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             video_path = excluded.video_path,
             deck_path = excluded.deck_path,
             status = excluded.status,
             error_message = excluded.error_message,
             anchor_frame = excluded.anchor_frame,
             frame_rate = excluded.frame_rate,
             page_count = excluded.page_count,
             scanned_frames = excluded.scanned_frames,
             ocr_calls = excluded.ocr_calls,
             subtitle_path = excluded.subtitle_path,
             merged_path = excluded.merged_path,
             chapters_path = excluded.chapters_path,
             finished_at = excluded.finished_at`,
		run.ID, run.VideoPath, run.DeckPath, string(run.Status), nullable(run.ErrorMessage),
		run.AnchorFrame, run.FrameRate, run.PageCount, run.ScannedFrames, run.OCRCalls,
		nullable(run.SubtitlePath), nullable(run.MergedPath), nullable(run.ChaptersPath),
		formatTime(run.CreatedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transitions WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear transitions: %w", err)
	}
	for _, tr := range run.Transitions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transitions (run_id, ordinal, slide_number, frame_number, timestamp_ms, distance, similarity, reason)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, tr.Ordinal, tr.SlideNumber, tr.FrameNumber, tr.Timestamp.Milliseconds(), tr.Distance, tr.Similarity, tr.Reason,
		); err != nil {
			return fmt.Errorf("insert transition %d: %w", tr.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first, without transitions. A
// non-positive limit returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get loads a run and its transitions ordered by ordinal.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ordinal, slide_number, frame_number, timestamp_ms, distance, similarity, reason
         FROM transitions WHERE run_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("get transitions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tr Transition
			ms int64
		)
		if err := rows.Scan(&tr.Ordinal, &tr.SlideNumber, &tr.FrameNumber, &ms, &tr.Distance, &tr.Similarity, &tr.Reason); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.Timestamp = time.Duration(ms) * time.Millisecond
		run.Transitions = append(run.Transitions, tr)
	}
	return run, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		status       string
		errorMessage sql.NullString
		subtitlePath sql.NullString
		mergedPath   sql.NullString
		chaptersPath sql.NullString
		createdRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.VideoPath,
		&run.DeckPath,
		&status,
		&errorMessage,
		&run.AnchorFrame,
		&run.FrameRate,
		&run.PageCount,
		&run.ScannedFrames,
		&run.OCRCalls,
		&subtitlePath,
		&mergedPath,
		&chaptersPath,
		&createdRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.ErrorMessage = errorMessage.String
	run.SubtitlePath = subtitlePath.String
	run.MergedPath = mergedPath.String
	run.ChaptersPath = chaptersPath.String
	run.CreatedAt = parseTime(createdRaw)
	run.FinishedAt = parseTime(finishedRaw)
	return &run, nil
}
