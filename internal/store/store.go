package store

import (
	"context"
	"errors"

	"github.com/seantiz/loadlab/internal/model"
)

// ErrNotFound is returned when a job is not found.
var ErrNotFound = errors.New("job not found")

// JobStats holds aggregate statistics over the job ledger.
type JobStats struct {
	Total         int            `json:"total"`
	CountByKind   map[string]int `json:"byKind"`
	CountByStatus map[string]int `json:"byStatus"`
	AvgDurationMS float64        `json:"avgDurationMs"`
}

// Store defines the persistence operations for finished jobs.
type Store interface {
	CreateJob(ctx context.Context, j *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, int, error)
	GetJobStats(ctx context.Context) (*JobStats, error)
	Close() error
}
