package repository

import (
	"context"

	"docfill/internal/model"
)

// SessionStore keeps sessions for a bounded time. Get returns nil, nil when the
// session does not exist or has expired. Put refreshes the expiry.
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Put(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id string) error
}
