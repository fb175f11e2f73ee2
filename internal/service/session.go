package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medicore/medicore-api/internal/domain"
	"github.com/medicore/medicore-api/internal/metrics"
)

// DefaultSessionTTL is the fixed lifetime of a session.
const DefaultSessionTTL = 24 * time.Hour

// SessionManager issues, validates and destroys server-side sessions.
type SessionManager struct {
	sessions domain.SessionRepository
	users    domain.UserRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager creates a SessionManager. A nil now uses time.Now.
func NewSessionManager(sessions domain.SessionRepository, users domain.UserRepository, ttl time.Duration, now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{sessions: sessions, users: users, ttl: ttl, now: now}
}

// TTL returns the session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Establish creates a session for user.
func (m *SessionManager) Establish(ctx context.Context, user *domain.User) (*domain.Session, error) {
	now := m.now().UTC()
	session := &domain.Session{
		ID:        rand.Text(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Validate resolves the session to its user. The user is re-read on every
// call. A missing or expired session, or one whose user no longer exists,
// fails with ErrUnauthorized; an unverified user fails with ErrForbidden.
func (m *SessionManager) Validate(ctx context.Context, sessionID string) (*domain.User, error) {
	session, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(m.now()) {
		m.discard(ctx, sessionID)
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, domain.ErrSessionExpired)
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.discard(ctx, sessionID)
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.IsVerified {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

// Destroy removes the session. Destroying a missing session is not an error.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes expired sessions from stores that keep them around.
// Stores that expire records themselves report zero.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	purger, ok := m.sessions.(domain.ExpiredSessionPurger)
	if !ok {
		return 0, nil
	}
	n, err := purger.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	metrics.SessionsPurgedTotal.Add(float64(n))
	return n, nil
}

// RunJanitor calls PurgeExpired every interval until ctx is done.
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) {
	if _, ok := m.sessions.(domain.ExpiredSessionPurger); !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				slog.Error("session janitor", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions purged", "count", n)
			}
		}
	}
}

func (m *SessionManager) discard(ctx context.Context, sessionID string) {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		slog.Warn("discard session", "error", err)
	}
}

// SessionTokens signs session identifiers for the client cookie.
type SessionTokens struct {
	secret []byte
}

// NewSessionTokens creates SessionTokens using an HMAC secret.
func NewSessionTokens(secret string) *SessionTokens {
	return &SessionTokens{secret: []byte(secret)}
}

// Sign returns a signed token carrying the session id.
func (t *SessionTokens) Sign(session *domain.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   session.ID,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the session id it carries.
func (t *SessionTokens) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", domain.ErrUnauthorized
	}
	return claims.Subject, nil
}
