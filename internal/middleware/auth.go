package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/mise/internal/auth"
	"github.com/dukerupert/mise/internal/model"
)

// SessionValidator resolves a raw session token. Unknown or expired tokens
// return nils without error.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.Session, *model.User, error)
}

// LoadSession resolves the session cookie on every request and attaches the
// AuthContext. Valid sessions get their cookie re-issued with the current
// expiry; stale cookies are cleared. Anonymous requests pass through.
func LoadSession(sessions SessionValidator, secure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{})))
				return
			}

			sess, user, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				logger.Error("validate session", "error", err, "request_id", RequestIDFromContext(r.Context()))
				next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{})))
				return
			}
			if sess == nil {
				auth.ClearSessionCookie(w, secure)
				next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{})))
				return
			}

			auth.SetSessionCookie(w, cookie.Value, sess.ExpiresAt, secure)
			ctx := auth.WithAuth(r.Context(), auth.AuthContext{User: user, Session: sess})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests. API paths get a 401 JSON body;
// everything else is redirected to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.User(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		redirectToLogin(w, r)
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login?redirectTo=" + url.QueryEscape(r.URL.RequestURI())
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
