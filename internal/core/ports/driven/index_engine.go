package driven

import (
	"context"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// IndexEngine stores index records and answers queries against them
// (bleve embedded, or Vespa over HTTP).
type IndexEngine interface {
	// Insert adds records as a single write. A record whose id already
	// exists supersedes the previous entry.
	Insert(ctx context.Context, records []domain.IndexRecord) error

	// Delete removes records by identifier. Unknown identifiers are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteByFilter removes every record whose fields equal all of the
	// given values (e.g. {"wiki": "xwiki", "space": "Sandbox"}).
	DeleteByFilter(ctx context.Context, filter map[string]string) error

	// DeleteAll empties the index.
	DeleteAll(ctx context.Context) error

	// Query runs a built query and returns raw hits with highlights.
	Query(ctx context.Context, q *domain.EngineQuery) (*domain.RawResponse, error)

	// Fields returns the field names the engine schema currently knows.
	// Used to decide which query fields can be localized.
	Fields(ctx context.Context) ([]string, error)

	// Count returns the number of records in the index.
	Count(ctx context.Context) (int64, error)

	// HealthCheck verifies the engine is available
	HealthCheck(ctx context.Context) error

	// Close releases the engine's resources
	Close() error
}
