package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const jobColumns = `id, table_name, format, request, status, object_key, row_count, error,
	created_at, started_at, completed_at, expires_at`

// CreateJob inserts a pending job. CreatedAt defaults to now.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *Job) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = JobPending
	}

	s.logger.Debug("creating export job", slog.String("id", job.ID), slog.String("table", job.Table))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO export_jobs (id, table_name, format, request, status, object_key, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Table, job.Format, string(job.Request), string(job.Status), job.ObjectKey,
		job.CreatedAt.UTC(), job.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create export job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*Job, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM export_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export job: %w", err)
	}
	return job, nil
}

// ClaimJob marks the oldest pending job as running and returns it. Each
// pending job is handed to exactly one caller; ErrJobNotFound means the
// backlog is empty.
func (s *SQLiteStore) ClaimJob(ctx context.Context) (*Job, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	for {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM export_jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`,
			string(JobPending)).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to claim export job: %w", err)
		}

		res, err := s.db.ExecContext(ctx,
			`UPDATE export_jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
			string(JobRunning), time.Now().UTC(), id, string(JobPending))
		if err != nil {
			return nil, fmt.Errorf("failed to claim export job: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to claim export job: %w", err)
		}
		if n == 0 {
			// another worker got there first
			continue
		}

		s.logger.Debug("claimed export job", slog.String("id", id))
		return s.GetJob(ctx, id)
	}
}

// CompleteJob marks a job as completed with the number of exported rows.
func (s *SQLiteStore) CompleteJob(ctx context.Context, id string, rows int) error {
	return s.update(ctx, id,
		`UPDATE export_jobs SET status = ?, row_count = ?, error = NULL, completed_at = ? WHERE id = ?`,
		string(JobCompleted), rows, time.Now().UTC(), id)
}

// FailJob marks a job as failed.
func (s *SQLiteStore) FailJob(ctx context.Context, id string, errMsg string) error {
	return s.update(ctx, id,
		`UPDATE export_jobs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(JobFailed), errMsg, time.Now().UTC(), id)
}

func (s *SQLiteStore) update(ctx context.Context, id, query string, args ...any) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

// ListJobs returns the most recent jobs up to limit.
func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.query(ctx, `SELECT `+jobColumns+` FROM export_jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
}

// ExpiredJobs returns jobs whose links expired before the given time.
func (s *SQLiteStore) ExpiredJobs(ctx context.Context, before time.Time) ([]*Job, error) {
	return s.query(ctx, `SELECT `+jobColumns+` FROM export_jobs WHERE expires_at < ? ORDER BY expires_at`, before.UTC())
}

// DeleteJob removes a job record.
func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) error {
	return s.update(ctx, id, `DELETE FROM export_jobs WHERE id = ?`, id)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]*Job, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list export jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*Job, error) {
	var (
		job         Job
		request     string
		status      string
		errMsg      sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := sc.Scan(&job.ID, &job.Table, &job.Format, &request, &status, &job.ObjectKey, &job.Rows, &errMsg,
		&job.CreatedAt, &startedAt, &completedAt, &job.ExpiresAt)
	if err != nil {
		return nil, err
	}
	job.Request = []byte(request)
	job.Status = JobStatus(status)
	job.Error = errMsg.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}
