package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of an indexing job
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true once the job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ProgressState is a point-in-time view of an indexing job.
// Times are in milliseconds; Speed is units per second.
type ProgressState struct {
	JobID  string    `json:"job_id"`
	Name   string    `json:"name"`
	Status JobStatus `json:"status"`

	TotalCount   int64 `json:"total_count"`
	IndexedCount int64 `json:"indexed_count"`
	SkippedCount int64 `json:"skipped_count"`
	QueueSize    int64 `json:"queue_size"`

	ElapsedTime             int64   `json:"elapsed_ms"`
	Speed                   float64 `json:"speed"`
	EstimatedCompletionTime int64   `json:"estimated_completion_ms"`

	// Human readable renderings of ElapsedTime and EstimatedCompletionTime
	Elapsed             string `json:"elapsed"`
	EstimatedCompletion string `json:"eta"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Percent returns completion as 0-100. An empty job is 100% once terminal.
func (p ProgressState) Percent() float64 {
	if p.TotalCount <= 0 {
		if p.Status.IsTerminal() {
			return 100
		}
		return 0
	}
	return float64(p.IndexedCount) * 100 / float64(p.TotalCount)
}

// FormatDuration renders milliseconds as HH:MM:SS.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
