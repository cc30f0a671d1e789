package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/auth"
	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/store"
)

type UserHandler struct {
	users   *store.UserStore
	recipes *RecipeHandler
	logger  *slog.Logger
}

func NewUserHandler(us *store.UserStore, rh *RecipeHandler, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, recipes: rh, logger: logger}
}

type publicProfile struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	FirstName    *string         `json:"firstName"`
	LastName     *string         `json:"lastName"`
	Bio          *string         `json:"bio"`
	ProfileImage *string         `json:"profileImage"`
	CreatedAt    time.Time       `json:"createdAt"`
	Stats        model.UserStats `json:"stats"`
}

type privateProfile struct {
	publicProfile
	Email             *string   `json:"email"`
	Age               *int      `json:"age"`
	Location          *string   `json:"location"`
	Website           *string   `json:"website"`
	UpdatedAt         time.Time `json:"updatedAt"`
	NeedsProfileSetup bool      `json:"needsProfileSetup"`
}

func newPublicProfile(u *model.User, st model.UserStats) publicProfile {
	return publicProfile{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Bio:          u.Bio,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
		Stats:        st,
	}
}

func newPrivateProfile(u *model.User, st model.UserStats) privateProfile {
	return privateProfile{
		publicProfile:     newPublicProfile(u, st),
		Email:             u.Email,
		Age:               u.Age,
		Location:          u.Location,
		Website:           u.Website,
		UpdatedAt:         u.UpdatedAt,
		NeedsProfileSetup: u.NeedsProfileSetup(),
	}
}

func (h *UserHandler) lookup(w http.ResponseWriter, r *http.Request) *model.User {
	u, err := h.users.GetByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return nil
	}
	if u == nil {
		writeMessage(w, r, http.StatusNotFound, "user not found")
		return nil
	}
	return u
}

// Get serves GET /api/users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u := h.lookup(w, r)
	if u == nil {
		return
	}
	st, err := h.users.Stats(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPublicProfile(u, st))
}

// Recipes serves GET /api/users/{username}/recipes.
func (h *UserHandler) Recipes(w http.ResponseWriter, r *http.Request) {
	u := h.lookup(w, r)
	if u == nil {
		return
	}
	h.recipes.ListByAuthor(w, r, u)
}

// GetMe serves GET /api/users/me.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u := auth.User(r.Context())
	if u == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthenticated)
		return
	}
	st, err := h.users.Stats(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPrivateProfile(u, st))
}

type profileRequest struct {
	FirstName    *string `json:"firstName" validate:"omitnil,max=50"`
	LastName     *string `json:"lastName" validate:"omitnil,max=50"`
	Bio          *string `json:"bio" validate:"omitnil,max=500"`
	Email        *string `json:"email" validate:"omitempty,email,account_email"`
	Age          *int    `json:"age" validate:"omitnil,gte=13,lte=120"`
	ProfileImage *string `json:"profileImage" validate:"omitempty,url"`
	Location     *string `json:"location" validate:"omitnil,max=100"`
	Website      *string `json:"website" validate:"omitnil,max=255"`
}

func trimPtr(p *string) {
	if p != nil {
		*p = strings.TrimSpace(*p)
	}
}

func (req *profileRequest) normalize() {
	for _, p := range []*string{req.FirstName, req.LastName, req.Bio, req.Email, req.ProfileImage, req.Location, req.Website} {
		trimPtr(p)
	}
	if req.Email != nil {
		*req.Email = strings.ToLower(*req.Email)
	}
	if w := req.Website; w != nil && *w != "" && !strings.Contains(*w, "://") {
		*w = "https://" + *w
	}
}

// UpdateMe serves PUT /api/users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	u := auth.User(r.Context())
	if u == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthenticated)
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.normalize()
	if err := checkStruct(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), u.ID, model.ProfileUpdate{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Bio:          req.Bio,
		Email:        req.Email,
		Age:          req.Age,
		ProfileImage: req.ProfileImage,
		Location:     req.Location,
		Website:      req.Website,
	})
	if errors.Is(err, apperr.ErrConflict) {
		writeMessage(w, r, http.StatusConflict, "email already in use")
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	st, err := h.users.Stats(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPrivateProfile(updated, st))
}
