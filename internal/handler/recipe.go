package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/auth"
	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/recipe"
	"github.com/dukerupert/mise/internal/store"
	"github.com/dukerupert/mise/internal/websocket"
)

type RecipeHandler struct {
	recipes *store.RecipeStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewRecipeHandler(rs *store.RecipeStore, hub *websocket.Hub, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: rs, hub: hub, logger: logger}
}

func (h *RecipeHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type listFilters struct {
	Search     string `json:"search,omitempty"`
	Category   string `json:"category,omitempty"`
	Cuisine    string `json:"cuisine,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Author     string `json:"author,omitempty"`
	Published  bool   `json:"published"`
}

type listResponse struct {
	Recipes    []recipe.Response `json:"recipes"`
	Pagination recipe.Pagination `json:"pagination"`
	Filters    listFilters       `json:"filters"`
}

func listParams(r *http.Request) store.ListParams {
	q := r.URL.Query()
	return store.ListParams{
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", store.DefaultPageSize),
		Search:     q.Get("search"),
		Category:   q.Get("category"),
		Cuisine:    q.Get("cuisine"),
		Difficulty: q.Get("difficulty"),
		Author:     q.Get("author"),
		Published:  q.Get("published") != "false",
		ViewerID:   auth.UserID(r.Context()),
	}
}

func (h *RecipeHandler) writeList(w http.ResponseWriter, r *http.Request, p store.ListParams) {
	res, err := h.recipes.List(r.Context(), p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := listResponse{
		Recipes:    make([]recipe.Response, 0, len(res.Items)),
		Pagination: recipe.NewPagination(res.Page, res.Limit, res.Total),
		Filters: listFilters{
			Search:     strings.TrimSpace(p.Search),
			Category:   strings.TrimSpace(p.Category),
			Cuisine:    strings.TrimSpace(p.Cuisine),
			Difficulty: strings.TrimSpace(p.Difficulty),
			Author:     strings.TrimSpace(p.Author),
			Published:  p.Published,
		},
	}
	for i := range res.Items {
		out.Recipes = append(out.Recipes, recipe.NewResponse(&res.Items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// List serves GET /api/recipes.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, listParams(r))
}

// Get serves GET /api/recipes/{slug}. Drafts are visible only to their author.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	d, err := h.recipes.GetBySlug(r.Context(), slug)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	viewerID := auth.UserID(r.Context())
	if d == nil || (!d.IsPublished && d.AuthorID != viewerID) {
		writeMessage(w, r, http.StatusNotFound, "recipe not found")
		return
	}
	writeJSON(w, http.StatusOK, recipe.NewDetailResponse(d, viewerID))
}

type writeResponse struct {
	Message string          `json:"message"`
	Recipe  recipe.Response `json:"recipe"`
}

// Create serves POST /api/recipes.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.User(r.Context())
	if u == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthenticated)
		return
	}

	var in recipe.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	s, err := h.recipes.Create(r.Context(), &in, u.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	msg := "Recipe saved as draft!"
	if s.IsPublished {
		msg = "Recipe published successfully!"
		h.broadcast(websocket.NewEvent(websocket.EventPublished, &s.Recipe, s.Author.Username))
	}
	h.logger.Info("recipe created", "recipe_id", s.ID, "slug", s.Slug, "author", u.Username)
	writeJSON(w, http.StatusCreated, writeResponse{Message: msg, Recipe: recipe.NewResponse(s)})
}

// Update serves PATCH /api/recipes/{id} and PATCH /api/recipes?id=.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	u := auth.User(r.Context())
	if u == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthenticated)
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	before, err := h.recipes.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if before == nil {
		writeMessage(w, r, http.StatusNotFound, "recipe not found")
		return
	}
	if before.AuthorID != u.ID {
		writeMessage(w, r, http.StatusForbidden, "you can only edit your own recipes")
		return
	}

	var in recipe.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	s, err := h.recipes.Update(r.Context(), id, &in, u.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	switch {
	case s.IsPublished && !before.IsPublished:
		h.broadcast(websocket.NewEvent(websocket.EventPublished, &s.Recipe, s.Author.Username))
	case s.IsPublished:
		h.broadcast(websocket.NewEvent(websocket.EventUpdated, &s.Recipe, s.Author.Username))
	}
	h.logger.Info("recipe updated", "recipe_id", s.ID, "slug", s.Slug)
	writeJSON(w, http.StatusOK, writeResponse{Message: "Recipe updated successfully!", Recipe: recipe.NewResponse(s)})
}

type deletedRecipe struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Delete serves DELETE /api/recipes/{id} and DELETE /api/recipes?id=.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u := auth.User(r.Context())
	if u == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthenticated)
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	deleted, err := h.recipes.Delete(r.Context(), id, u.ID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeMessage(w, r, http.StatusNotFound, "recipe not found")
		return
	case errors.Is(err, apperr.ErrForbidden):
		writeMessage(w, r, http.StatusForbidden, "you can only delete your own recipes")
		return
	case err != nil:
		writeError(w, r, h.logger, err)
		return
	}

	if deleted.IsPublished {
		h.broadcast(websocket.NewEvent(websocket.EventDeleted, deleted, u.Username))
	}
	h.logger.Info("recipe deleted", "recipe_id", deleted.ID, "slug", deleted.Slug)
	writeJSON(w, http.StatusOK, map[string]deletedRecipe{
		"deletedRecipe": {ID: deleted.ID, Title: deleted.Title, Slug: deleted.Slug},
	})
}

// ListByAuthor serves GET /api/users/{username}/recipes. Authors see their
// own drafts when they ask for published=false.
func (h *RecipeHandler) ListByAuthor(w http.ResponseWriter, r *http.Request, author *model.User) {
	p := listParams(r)
	p.Author = author.Username
	if !p.Published && p.ViewerID != "" && p.ViewerID != author.ID {
		writeError(w, r, h.logger, fmt.Errorf("drafts of %s: %w", author.Username, apperr.ErrForbidden))
		return
	}
	h.writeList(w, r, p)
}
