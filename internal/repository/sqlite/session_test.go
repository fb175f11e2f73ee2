package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medicore/medicore-api/internal/domain"
)

func TestSessionRepository_CreateGetDelete(t *testing.T) {
	db := newTestDB(t)
	repo := db.Sessions()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	session := &domain.Session{ID: "s-1", UserID: "u-1", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.GetByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if found.UserID != "u-1" {
		t.Fatalf("expected user u-1, got %q", found.UserID)
	}
	if !found.ExpiresAt.Equal(session.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", session.ExpiresAt, found.ExpiresAt)
	}

	if err := repo.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}

	_, err = repo.GetByID(ctx, "s-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	db := newTestDB(t)
	repo := db.Sessions()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	sessions := []*domain.Session{
		{ID: "old", UserID: "u-1", CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)},
		{ID: "edge", UserID: "u-1", CreatedAt: now.Add(-24 * time.Hour), ExpiresAt: now},
		{ID: "live", UserID: "u-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, s := range sessions {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create %s: %v", s.ID, err)
		}
	}

	n, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 sessions purged, got %d", n)
	}

	if _, err := repo.GetByID(ctx, "live"); err != nil {
		t.Fatalf("expected live session to survive: %v", err)
	}
}
