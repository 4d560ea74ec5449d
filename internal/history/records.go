package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"lapse/internal/render"
)

// Status is the terminal state of a recorded job.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ScriptError is the stored form of a hook script failure.
type ScriptError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Record is one finished render.
type Record struct {
	ID            int64         `json:"id"`
	JobID         string        `json:"job_id"`
	Camera        string        `json:"camera"`
	JobNumber     int           `json:"job_number"`
	JobsRemaining int           `json:"jobs_remaining"`
	Status        Status        `json:"status"`
	ErrorKind     string        `json:"error_kind,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	RenderingPath string        `json:"rendering_path,omitempty"`
	SyncPath      string        `json:"sync_path,omitempty"`
	SnapshotCount int           `json:"snapshot_count"`
	ScriptErrors  []ScriptError `json:"script_errors,omitempty"`
	FinishedAt    time.Time     `json:"finished_at"`
}

// RecordFromPayload converts a terminal lifecycle payload into a Record. A
// nil renderErr means the job succeeded.
func RecordFromPayload(p render.Payload, renderErr *render.Error, finished time.Time) Record {
	rec := Record{
		JobID:         p.JobID,
		Camera:        p.CameraName,
		JobNumber:     p.JobNumber,
		JobsRemaining: p.JobsRemaining,
		Status:        StatusSucceeded,
		SnapshotCount: p.SnapshotCount,
		FinishedAt:    finished.UTC(),
	}
	if p.RenderingFilename != "" {
		rec.RenderingPath = p.RenderingPath()
	}
	if p.Synchronize && p.SynchronizationFilename != "" {
		rec.SyncPath = p.SynchronizationPath()
	}
	if renderErr != nil {
		rec.Status = StatusFailed
		rec.ErrorKind = string(renderErr.Kind)
		rec.ErrorMessage = renderErr.Message
	}
	for _, scriptErr := range p.ScriptErrors() {
		rec.ScriptErrors = append(rec.ScriptErrors, ScriptError{Kind: string(scriptErr.Kind), Message: scriptErr.Message})
	}
	return rec
}

// Append stores rec and returns it with its assigned ID.
func (s *Store) Append(ctx context.Context, rec Record) (Record, error) {
	scripts := ""
	if len(rec.ScriptErrors) > 0 {
		encoded, err := json.Marshal(rec.ScriptErrors)
		if err != nil {
			return rec, fmt.Errorf("encode script errors: %w", err)
		}
		scripts = string(encoded)
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO renders (
            job_id, camera, job_number, jobs_remaining, status, error_kind,
            error_message, rendering_path, sync_path, snapshot_count,
            script_errors, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID,
		rec.Camera,
		rec.JobNumber,
		rec.JobsRemaining,
		rec.Status,
		nullableString(rec.ErrorKind),
		nullableString(rec.ErrorMessage),
		nullableString(rec.RenderingPath),
		nullableString(rec.SyncPath),
		rec.SnapshotCount,
		nullableString(scripts),
		rec.FinishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return rec, fmt.Errorf("insert render record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return rec, fmt.Errorf("render record id: %w", err)
	}
	rec.ID = id
	return rec, nil
}

// List returns up to limit records, newest first. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, job_id, camera, job_number, jobs_remaining, status,
            error_kind, error_message, rendering_path, sync_path,
            snapshot_count, script_errors, finished_at
        FROM renders ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var records []Record
	err := retryOnBusy(ctx, func() error {
		records = records[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list render records: %w", err)
	}
	return records, nil
}

// Counts returns the number of recorded jobs per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	counts := map[Status]int{}
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM renders GROUP BY status")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				status string
				count  int
			)
			if err := rows.Scan(&status, &count); err != nil {
				return err
			}
			counts[Status(status)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("count render records: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec                                       Record
		status, finished                          string
		errKind, errMsg, renderPath, syncPath, se sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &rec.JobID, &rec.Camera, &rec.JobNumber, &rec.JobsRemaining, &status,
		&errKind, &errMsg, &renderPath, &syncPath,
		&rec.SnapshotCount, &se, &finished,
	); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	rec.ErrorKind = errKind.String
	rec.ErrorMessage = errMsg.String
	rec.RenderingPath = renderPath.String
	rec.SyncPath = syncPath.String
	if se.Valid && se.String != "" {
		if err := json.Unmarshal([]byte(se.String), &rec.ScriptErrors); err != nil {
			return Record{}, fmt.Errorf("decode script errors for record %d: %w", rec.ID, err)
		}
	}
	parsed, err := time.Parse(time.RFC3339Nano, finished)
	if err != nil {
		return Record{}, fmt.Errorf("parse finished_at for record %d: %w", rec.ID, err)
	}
	rec.FinishedAt = parsed
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
