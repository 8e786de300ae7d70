package driving

import (
	"context"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// IndexingService submits indexing jobs and manages the index contents.
type IndexingService interface {
	// IndexUnits submits refs as one job and returns its ID without waiting
	IndexUnits(ctx context.Context, refs []domain.ContentRef) (string, error)

	// IndexUnitsInScope submits the refs that lie inside scope. With no refs,
	// every unit of the scope is enumerated from the content store.
	IndexUnitsInScope(ctx context.Context, scope domain.Scope, refs []domain.ContentRef) (string, error)

	// IndexAll rebuilds the whole installation. Only one replica may run it
	// at a time; returns domain.ErrLockHeld otherwise.
	IndexAll(ctx context.Context) (string, error)

	// Status returns every known job, live and persisted
	Status(ctx context.Context) ([]*domain.ProgressState, error)

	// JobStatus returns one job, or domain.ErrJobNotFound
	JobStatus(ctx context.Context, jobID string) (*domain.ProgressState, error)

	// StatusJSON returns Status encoded as JSON
	StatusJSON(ctx context.Context) ([]byte, error)

	// CancelJob stops a running job after its current batch step
	CancelJob(ctx context.Context, jobID string) error

	// DeleteIndex removes the entry of one unit
	DeleteIndex(ctx context.Context, ref domain.ContentRef) error

	// DeleteScope removes every entry of a wiki or wiki+space
	DeleteScope(ctx context.Context, scope domain.Scope) error

	// DeleteEntireIndex empties the index
	DeleteEntireIndex(ctx context.Context) error
}

// EventListener reacts to host content notifications.
type EventListener interface {
	OnCreated(ctx context.Context, ref domain.ContentRef) error
	OnUpdated(ctx context.Context, ref domain.ContentRef) error
	OnDeleted(ctx context.Context, ref domain.ContentRef) error
	OnAttachmentChanged(ctx context.Context, ref domain.ContentRef) error

	// Handle dispatches a ContentEvent to the matching handler
	Handle(ctx context.Context, event domain.ContentEvent) error
}
