package driving

import (
	"context"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// SearchService answers queries. Results are filtered for the requester
// carried by ctx (see domain.WithRequester).
type SearchService interface {
	// Search runs a raw query string with default parameters
	Search(ctx context.Context, query string) (*domain.SearchResponse, error)

	// SearchRequest runs a structured request
	SearchRequest(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error)
}
