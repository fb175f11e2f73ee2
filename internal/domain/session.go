package domain

import (
	"context"
	"time"
)

// Session binds an opaque identifier to an authenticated user for a fixed window.
// UserID is a weak reference: the session does not keep the user alive.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository persists sessions keyed by their identifier.
// Delete is idempotent.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// ExpiredSessionPurger is implemented by session stores that do not expire
// records on their own.
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
