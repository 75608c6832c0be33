// Package journal keeps a SQLite ledger of bake runs and the outcome of
// every frame they touched.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/panobake/pkg/orient"
)

//go:embed schema.sql
var schemaSQL string

// Frame statuses.
const (
	StatusBaked   = "baked"
	StatusPlanned = "planned"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Journal is an open run ledger.
type Journal struct {
	*sql.DB
}

// Run is one pipeline invocation.
type Run struct {
	ID         uuid.UUID
	InputPath  string
	OutputPath string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	Skipped    int
}

// FrameResult is the outcome of one frame within a run.
type FrameResult struct {
	FrameID    string
	Status     string
	Reason     string
	Message    string
	Angles     *orient.Angles
	OutputPath string
	Duration   time.Duration
}

// NewRunID returns a fresh random run id.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying journal schema: %w", err)
	}
	return &Journal{db}, nil
}

// Record stores a run and its frame results in one transaction.
func (j *Journal) Record(ctx context.Context, run Run, frames []FrameResult) error {
	tx, err := j.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, input_path, output_path, dry_run, started_at, finished_at, succeeded, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.InputPath, run.OutputPath, run.DryRun,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Succeeded, run.Failed, run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frame_results (run_id, seq, frame_id, status, reason, message, yaw, pitch, roll, output_path, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range frames {
		var yaw, pitch, roll sql.NullFloat64
		if f.Angles != nil {
			yaw = sql.NullFloat64{Float64: f.Angles.Yaw, Valid: true}
			pitch = sql.NullFloat64{Float64: f.Angles.Pitch, Valid: true}
			roll = sql.NullFloat64{Float64: f.Angles.Roll, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			run.ID.String(), i, f.FrameID, f.Status, f.Reason, f.Message,
			yaw, pitch, roll, f.OutputPath, f.Duration.Nanoseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert frame %s: %w", f.FrameID, err)
		}
	}

	return tx.Commit()
}

// Runs lists recorded runs, newest first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.QueryContext(ctx, `
		SELECT run_id, input_path, output_path, dry_run, started_at, finished_at, succeeded, failed, skipped
		FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			id                string
			started, finished string
		)
		if err := rows.Scan(&id, &r.InputPath, &r.OutputPath, &r.DryRun, &started, &finished,
			&r.Succeeded, &r.Failed, &r.Skipped); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Frames returns the frame results of a run in processing order.
func (j *Journal) Frames(ctx context.Context, runID uuid.UUID) ([]FrameResult, error) {
	rows, err := j.QueryContext(ctx, `
		SELECT frame_id, status, reason, message, yaw, pitch, roll, output_path, duration_ns
		FROM frame_results WHERE run_id = ? ORDER BY seq`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameResult
	for rows.Next() {
		var (
			f                FrameResult
			yaw, pitch, roll sql.NullFloat64
			ns               int64
		)
		if err := rows.Scan(&f.FrameID, &f.Status, &f.Reason, &f.Message,
			&yaw, &pitch, &roll, &f.OutputPath, &ns); err != nil {
			return nil, err
		}
		if yaw.Valid && pitch.Valid && roll.Valid {
			f.Angles = &orient.Angles{Yaw: yaw.Float64, Pitch: pitch.Float64, Roll: roll.Float64}
		}
		f.Duration = time.Duration(ns)
		out = append(out, f)
	}
	return out, rows.Err()
}

// timeLayout keeps a fixed number of fraction digits so stored times sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
