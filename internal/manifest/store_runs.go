package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const timeLayout = time.RFC3339Nano

// BeginRun records the start of a pipeline invocation and returns its run.
func (s *Store) BeginRun(ctx context.Context, workdir string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		WorkDir:   workdir,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.execWithRetry(ctx,
		"INSERT INTO runs (id, workdir, started_at) VALUES (?, ?, ?)",
		run.ID, run.WorkDir, run.StartedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's end time and summary.
func (s *Store) FinishRun(ctx context.Context, runID, summary string) error {
	_, err := s.execWithRetry(ctx,
		"UPDATE runs SET finished_at = ?, summary = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), summary, runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// StartStage records a stage entering the running state.
func (s *Store) StartStage(ctx context.Context, runID, stageName, signature string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"INSERT INTO stage_runs (run_id, stage, signature, status, started_at) VALUES (?, ?, ?, ?, ?)",
		runID, stageName, signature, string(StatusRunning), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("record stage start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("stage id: %w", err)
	}
	return id, nil
}

// FinishStage moves a stage to a terminal status with optional detail.
func (s *Store) FinishStage(ctx context.Context, stageRunID int64, status Status, detail string) error {
	_, err := s.execWithRetry(ctx,
		"UPDATE stage_runs SET status = ?, detail = ?, finished_at = ? WHERE id = ?",
		string(status), detail, time.Now().UTC().Format(timeLayout), stageRunID)
	if err != nil {
		return fmt.Errorf("record stage finish: %w", err)
	}
	return nil
}

// RecordSkip records a stage skipped because its completion marker exists.
func (s *Store) RecordSkip(ctx context.Context, runID, stageName, signature, marker string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.execWithRetry(ctx,
		"INSERT INTO stage_runs (run_id, stage, signature, status, detail, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		runID, stageName, signature, string(StatusSkipped), marker, now, now)
	if err != nil {
		return fmt.Errorf("record stage skip: %w", err)
	}
	return nil
}

// History returns the most recent stage records for a working directory,
// newest run first.
func (s *Store) History(ctx context.Context, workdir string, limit int) ([]StageRecord, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sr.id, sr.run_id, sr.stage, sr.signature, sr.status, sr.detail, sr.started_at, sr.finished_at
		FROM stage_runs sr
		JOIN runs r ON r.id = sr.run_id
		WHERE r.workdir = ?
		ORDER BY r.started_at DESC, sr.id ASC
		LIMIT ?`, workdir, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var (
			record     StageRecord
			startedAt  string
			finishedAt sql.NullString
			status     string
		)
		if err := rows.Scan(&record.ID, &record.RunID, &record.Stage, &record.Signature,
			&status, &record.Detail, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		record.Status = Status(status)
		if ts, err := time.Parse(timeLayout, startedAt); err == nil {
			record.StartedAt = ts
		}
		if finishedAt.Valid {
			if ts, err := time.Parse(timeLayout, finishedAt.String); err == nil {
				record.FinishedAt = &ts
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
