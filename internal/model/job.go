package model

import "time"

// Job kind constants.
const (
	KindBounded  = "bounded"
	KindUnstable = "unstable"
	KindBatch    = "batch"
)

// Job status constants. A job is recorded once it has finished, so only
// terminal statuses exist.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
	StatusCanceled  = "canceled"
)

// Kinds lists every job kind in a stable order.
var Kinds = []string{KindBounded, KindUnstable, KindBatch}

// Statuses lists every terminal job status in a stable order.
var Statuses = []string{StatusCompleted, StatusFailed, StatusTimedOut, StatusCanceled}

// ValidKind reports whether k names a known job kind.
func ValidKind(k string) bool {
	switch k {
	case KindBounded, KindUnstable, KindBatch:
		return true
	}
	return false
}

// ValidStatus reports whether s names a known terminal job status.
func ValidStatus(s string) bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusCanceled:
		return true
	}
	return false
}

// Job is the ledger summary of one finished simulated job.
type Job struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	DurationMS int64     `json:"durationMs"`
	Items      *int      `json:"items,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	FinishedAt time.Time `json:"finishedAt"`
}
