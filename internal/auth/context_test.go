package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/mise/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		User:    &model.User{ID: "u1", Username: "chef_ann"},
		Session: &model.Session{ID: "abc", UserID: "u1", ExpiresAt: time.Now()},
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.User.ID != "u1" {
		t.Errorf("User.ID = %q, want %q", got.User.ID, "u1")
	}
	if got.Session.ID != "abc" {
		t.Errorf("Session.ID = %q, want %q", got.Session.ID, "abc")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{User: &model.User{ID: "u42"}})
	if got := UserID(ctx); got != "u42" {
		t.Errorf("UserID = %q, want %q", got, "u42")
	}
}

func TestUserIDAnonymous(t *testing.T) {
	if got := UserID(context.Background()); got != "" {
		t.Errorf("UserID = %q, want empty", got)
	}
	ctx := WithAuth(context.Background(), AuthContext{})
	if got := UserID(ctx); got != "" {
		t.Errorf("UserID = %q, want empty", got)
	}
	if Session(ctx) != nil {
		t.Error("expected nil session")
	}
}
