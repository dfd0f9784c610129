// Package state persists export job records in SQLite.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned for an unknown job ID.
var ErrJobNotFound = errors.New("export job not found")

// JobStatus is the lifecycle state of an export job.
type JobStatus string

// Job statuses.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is the persisted record of a deferred export.
type Job struct {
	ID          string
	Table       string
	Format      string
	Request     []byte // JSON snapshot of the export request
	Status      JobStatus
	ObjectKey   string
	Rows        int
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	ExpiresAt   time.Time
}

// Store records export jobs.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ClaimJob(ctx context.Context) (*Job, error)
	CompleteJob(ctx context.Context, id string, rows int) error
	FailJob(ctx context.Context, id string, errMsg string) error
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ExpiredJobs(ctx context.Context, before time.Time) ([]*Job, error)
	DeleteJob(ctx context.Context, id string) error
	Close() error
}
