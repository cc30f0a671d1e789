package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/mise/internal/auth"
	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/oauth"
	"github.com/dukerupert/mise/internal/store"
)

// IdentityProvider runs an authorization-code flow.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.ExternalProfile, error)
}

type OAuthHandler struct {
	provider IdentityProvider
	users    *store.UserStore
	auth     *AuthHandler
	logger   *slog.Logger
}

func NewOAuthHandler(p IdentityProvider, us *store.UserStore, ah *AuthHandler, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{provider: p, users: us, auth: ah, logger: logger}
}

// Start sends the browser to the provider with a fresh state value.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	auth.SetStateCookie(w, state, h.auth.secure)
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the flow. Every failure lands on /login?error=<code>.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	stored, _ := r.Cookie(auth.StateCookieName)
	auth.ClearStateCookie(w, h.auth.secure)

	if state == "" || stored == nil || stored.Value != state {
		h.fail(w, r, "invalid_state", nil)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, "no_code", nil)
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	switch {
	case errors.Is(err, oauth.ErrTokenExchange):
		h.fail(w, r, "token_exchange_failed", err)
		return
	case errors.Is(err, oauth.ErrUserInfo):
		h.fail(w, r, "user_info_failed", err)
		return
	case err != nil:
		h.fail(w, r, "unexpected", err)
		return
	}

	u, err := h.users.LinkOrCreateExternal(r.Context(), *profile)
	if err != nil {
		h.fail(w, r, "unexpected", err)
		return
	}

	if err := h.auth.startSession(w, r, u.ID); err != nil {
		h.fail(w, r, "unexpected", err)
		return
	}

	h.logger.Info("oauth login", "user_id", u.ID, "username", u.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, code string, err error) {
	if err != nil {
		h.logger.Warn("oauth callback failed", "code", code, "error", err)
	}
	http.Redirect(w, r, "/login?error="+code, http.StatusFound)
}
