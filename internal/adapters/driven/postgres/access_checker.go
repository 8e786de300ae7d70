package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AccessChecker = (*AccessChecker)(nil)

// AccessChecker implements driven.AccessChecker from the wiki_pages and
// wiki_rights tables.
type AccessChecker struct {
	db *DB
}

// NewAccessChecker creates a new AccessChecker
func NewAccessChecker(db *DB) *AccessChecker {
	return &AccessChecker{db: db}
}

// Exists reports whether any translation of the page is still present.
func (c *AccessChecker) Exists(ctx context.Context, page domain.ContentRef) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM wiki_pages WHERE wiki = $1 AND space = $2 AND page = $3)
	`, page.Wiki, page.Space, page.Page).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", page.DocRef(), err)
	}
	return exists, nil
}

// CanView resolves the requester's view right on the page. Admins see
// everything. Otherwise the most specific rule naming the user or one of
// their groups decides (deny first); with no such rule the page is visible
// unless it is restricted to other subjects.
func (c *AccessChecker) CanView(ctx context.Context, requester *domain.Requester, page domain.ContentRef) (bool, error) {
	if requester == nil {
		requester = domain.Guest()
	}
	if requester.Admin {
		return true, nil
	}
	user := requester.UserID
	if user == "" {
		user = domain.GuestUser
	}

	var allow bool
	err := c.db.QueryRowContext(ctx, `
		SELECT allow
		FROM wiki_rights
		WHERE wiki = $1 AND space = $2 AND page IN ($3, '')
		  AND ((NOT is_group AND subject = $4) OR (is_group AND subject = ANY($5)))
		ORDER BY (page = '') ASC, allow ASC
		LIMIT 1
	`, page.Wiki, page.Space, page.Page, user, pq.Array(requester.Groups)).Scan(&allow)
	if err == nil {
		return allow, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("check view right on %s: %w", page.DocRef(), err)
	}

	var restricted bool
	err = c.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM wiki_rights
			WHERE wiki = $1 AND space = $2 AND page IN ($3, '') AND allow
		)
	`, page.Wiki, page.Space, page.Page).Scan(&restricted)
	if err != nil {
		return false, fmt.Errorf("check view right on %s: %w", page.DocRef(), err)
	}
	return !restricted, nil
}
