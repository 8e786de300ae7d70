package domain

import "context"

// GuestUser is the user ID of unauthenticated requesters
const GuestUser = "XWiki.XWikiGuest"

// Requester identifies who is asking; visibility checks are made on its behalf.
type Requester struct {
	UserID string   `json:"user_id"`
	Groups []string `json:"groups,omitempty"`
	Admin  bool     `json:"admin"`
}

// Guest returns the anonymous requester.
func Guest() *Requester {
	return &Requester{UserID: GuestUser}
}

// IsGuest reports whether the requester is anonymous.
func (r *Requester) IsGuest() bool {
	return r == nil || r.UserID == "" || r.UserID == GuestUser
}

type requesterKey struct{}

// WithRequester returns a context carrying r.
func WithRequester(ctx context.Context, r *Requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, r)
}

// RequesterFromContext returns the requester in ctx, or Guest when there is none.
func RequesterFromContext(ctx context.Context) *Requester {
	if r, ok := ctx.Value(requesterKey{}).(*Requester); ok && r != nil {
		return r
	}
	return Guest()
}
