package domain

import (
	"time"

	"github.com/google/uuid"
)

// IndexingJob is a named batch of content references submitted together.
// A failed job is never resumed; resubmit the references as a new job.
type IndexingJob struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Refs      []ContentRef `json:"refs"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewIndexingJob creates a job with a fresh identifier.
func NewIndexingJob(name string, refs []ContentRef) *IndexingJob {
	return &IndexingJob{
		ID:        uuid.NewString(),
		Name:      name,
		Refs:      refs,
		CreatedAt: time.Now(),
	}
}

// Size returns the number of references in the job.
func (j *IndexingJob) Size() int {
	return len(j.Refs)
}
