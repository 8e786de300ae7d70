package driven

import (
	"context"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// TokenValidator turns a bearer token into the requester it identifies.
type TokenValidator interface {
	// Validate returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	Validate(ctx context.Context, token string) (*domain.Requester, error)
}
