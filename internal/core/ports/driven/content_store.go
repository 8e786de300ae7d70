package driven

import (
	"context"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// ContentStore gives read access to the host wiki's content.
type ContentStore interface {
	// Get loads a unit. Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, ref domain.ContentRef) (*domain.ContentUnit, error)

	// List enumerates every unit inside scope: pages in each of their
	// languages, followed by their attachments, objects and properties.
	// A zero scope lists the whole installation.
	List(ctx context.Context, scope domain.Scope) ([]domain.ContentRef, error)

	// Dependents returns the attachments, objects and properties of a page.
	Dependents(ctx context.Context, page domain.ContentRef) ([]domain.ContentRef, error)
}

// AccessChecker answers existence and view-permission questions for pages.
type AccessChecker interface {
	// Exists reports whether the page still exists in the host.
	Exists(ctx context.Context, page domain.ContentRef) (bool, error)

	// CanView reports whether requester may view the page.
	CanView(ctx context.Context, requester *domain.Requester, page domain.ContentRef) (bool, error)
}

// URLBuilder constructs public URLs for content.
type URLBuilder interface {
	// AttachmentURL returns the download URL of an attachment.
	AttachmentURL(ref domain.ContentRef) string
}
