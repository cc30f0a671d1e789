package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/auth"
	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/store"
)

// Hash compared against when the username is unknown, so a miss costs the
// same as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("mise-timing-pad")
	return h
})

type AuthHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
	secure   bool
	logger   *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, sessions: ss, secure: secure, logger: logger}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	NeedsProfileSetup bool   `json:"needsProfileSetup"`
}

func newAccountResponse(u *model.User) accountResponse {
	return accountResponse{ID: u.ID, Username: u.Username, NeedsProfileSetup: u.NeedsProfileSetup()}
}

// startSession issues a token for userID and sets the cookie.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID string) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}
	sess, err := h.sessions.Create(r.Context(), token, userID)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, token, sess.ExpiresAt, h.secure)
	return nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var problems []string
	if !auth.ValidateUsername(req.Username) {
		problems = append(problems, "username must be 3-31 characters of letters, digits and underscores")
	}
	if !auth.ValidatePassword(req.Password) {
		problems = append(problems, "password must be 6-255 characters")
	}
	if len(problems) > 0 {
		writeError(w, r, h.logger, apperr.Invalid(problems...))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.users.Create(r.Context(), req.Username, hash)
	if errors.Is(err, apperr.ErrConflict) {
		writeMessage(w, r, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.startSession(w, r, u.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	writeJSON(w, http.StatusCreated, newAccountResponse(u))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, h.logger, apperr.Invalid("missing credentials"))
		return
	}

	u, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	hash, hasPassword := dummyHash(), false
	if u != nil && u.PasswordHash != nil && *u.PasswordHash != "" {
		hash, hasPassword = *u.PasswordHash, true
	}
	if !auth.VerifyPassword(hash, req.Password) || !hasPassword {
		writeMessage(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.startSession(w, r, u.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(u))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := auth.Session(r.Context()); sess != nil {
		if err := h.sessions.Invalidate(r.Context(), sess.ID); err != nil {
			h.logger.Error("invalidate session", "error", err)
		}
	}
	auth.ClearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// LogoutAll ends every session of the current user, on every device.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	u := auth.User(r.Context())
	if u == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthenticated)
		return
	}
	if err := h.sessions.DeleteByUserID(r.Context(), u.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	auth.ClearSessionCookie(w, h.secure)
	h.logger.Info("signed out everywhere", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type meResponse struct {
	*model.User
	NeedsProfileSetup bool `json:"needsProfileSetup"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.User(r.Context())
	if u == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: u, NeedsProfileSetup: u.NeedsProfileSetup()})
}
