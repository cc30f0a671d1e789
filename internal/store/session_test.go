package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/mise/internal/auth"
)

func setupSessionTest(t *testing.T) (*SessionStore, string) {
	t.Helper()
	db := setupTestDB(t)
	u := createUser(t, db, "chef_ann")
	return NewSessionStore(db), u.ID
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSessionCreate(t *testing.T) {
	ss, userID := setupSessionTest(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ss.now = fixedClock(now)

	sess, err := ss.Create(context.Background(), "raw-token", userID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.ID != auth.HashToken("raw-token") {
		t.Errorf("id = %q, want hash of token", sess.ID)
	}
	if sess.ID == "raw-token" {
		t.Error("raw token must not be the session id")
	}
	if want := now.Add(SessionLifetime); !sess.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", sess.ExpiresAt, want)
	}

	var stored int
	ss.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, "raw-token").Scan(&stored)
	if stored != 0 {
		t.Error("raw token found in sessions table")
	}
}

func TestSessionValidate(t *testing.T) {
	ss, userID := setupSessionTest(t)
	ctx := context.Background()

	if _, err := ss.Create(ctx, "tok", userID); err != nil {
		t.Fatalf("create: %v", err)
	}
	sess, u, err := ss.Validate(ctx, "tok")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sess == nil || u == nil {
		t.Fatal("expected session and user")
	}
	if u.ID != userID || u.Username != "chef_ann" {
		t.Errorf("user = %+v", u)
	}
}

func TestSessionValidateUnknown(t *testing.T) {
	ss, _ := setupSessionTest(t)
	sess, u, err := ss.Validate(context.Background(), "nope")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sess != nil || u != nil {
		t.Error("expected nil session and user")
	}
}

func TestSessionRenewInsideWindow(t *testing.T) {
	ss, userID := setupSessionTest(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ss.now = fixedClock(start)

	created, _ := ss.Create(ctx, "tok", userID)

	// 10 days before expiry is inside the 15-day window.
	now := created.ExpiresAt.Add(-10 * 24 * time.Hour)
	ss.now = fixedClock(now)

	sess, _, err := ss.Validate(ctx, "tok")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := now.Add(SessionLifetime)
	if !sess.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", sess.ExpiresAt, want)
	}

	var stored int64
	ss.db.QueryRow(`SELECT expires_at FROM sessions WHERE id = ?`, sess.ID).Scan(&stored)
	if stored != want.Unix() {
		t.Errorf("stored expires_at = %d, want %d", stored, want.Unix())
	}
}

func TestSessionNoRenewOutsideWindow(t *testing.T) {
	ss, userID := setupSessionTest(t)
	ctx := context.Background()
	ss.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	created, _ := ss.Create(ctx, "tok", userID)

	ss.now = fixedClock(created.ExpiresAt.Add(-20 * 24 * time.Hour))
	sess, _, err := ss.Validate(ctx, "tok")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !sess.ExpiresAt.Equal(created.ExpiresAt) {
		t.Errorf("expires_at = %v, want unchanged %v", sess.ExpiresAt, created.ExpiresAt)
	}
}

func TestSessionExpired(t *testing.T) {
	ss, userID := setupSessionTest(t)
	ctx := context.Background()
	ss.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	created, _ := ss.Create(ctx, "tok", userID)

	ss.now = fixedClock(created.ExpiresAt.Add(time.Second))
	sess, u, err := ss.Validate(ctx, "tok")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sess != nil || u != nil {
		t.Error("expected nil session and user for expired token")
	}

	var n int
	ss.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, created.ID).Scan(&n)
	if n != 0 {
		t.Error("expected expired session row to be deleted")
	}
}

func TestSessionInvalidate(t *testing.T) {
	ss, userID := setupSessionTest(t)
	ctx := context.Background()
	created, _ := ss.Create(ctx, "tok", userID)

	if err := ss.Invalidate(ctx, created.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	sess, _, _ := ss.Validate(ctx, "tok")
	if sess != nil {
		t.Error("expected session to be gone")
	}
	// Invalidating twice is not an error.
	if err := ss.Invalidate(ctx, created.ID); err != nil {
		t.Errorf("second invalidate: %v", err)
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	ss, userID := setupSessionTest(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ss.now = fixedClock(start)
	ss.Create(ctx, "old", userID)
	ss.now = fixedClock(start.Add(20 * 24 * time.Hour))
	ss.Create(ctx, "new", userID)

	ss.now = fixedClock(start.Add(31 * 24 * time.Hour))
	n, err := ss.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if sess, _, _ := ss.Validate(ctx, "new"); sess == nil {
		t.Error("expected unexpired session to survive")
	}
}

func TestSessionDeleteByUserID(t *testing.T) {
	ss, userID := setupSessionTest(t)
	ctx := context.Background()
	ss.Create(ctx, "a", userID)
	ss.Create(ctx, "b", userID)

	if err := ss.DeleteByUserID(ctx, userID); err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	var n int
	ss.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	if n != 0 {
		t.Errorf("sessions = %d, want 0", n)
	}
}
