package driven

import (
	"context"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// JobStore persists job progress snapshots so status survives restarts and
// is visible from every replica (Redis or PostgreSQL).
type JobStore interface {
	// Save upserts the snapshot keyed by its JobID.
	Save(ctx context.Context, state *domain.ProgressState) error

	// Get returns the snapshot for jobID, or domain.ErrJobNotFound.
	Get(ctx context.Context, jobID string) (*domain.ProgressState, error)

	// List returns all stored snapshots, newest first.
	List(ctx context.Context) ([]*domain.ProgressState, error)

	// Delete removes a snapshot. Missing snapshots are not an error.
	Delete(ctx context.Context, jobID string) error
}
