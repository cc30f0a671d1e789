package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/recipe"
	"github.com/dukerupert/mise/internal/store"
)

// TaxonomyHandler serves one of the category or cuisine collections.
type TaxonomyHandler struct {
	store  *store.TaxonomyStore
	logger *slog.Logger
}

func NewTaxonomyHandler(ts *store.TaxonomyStore, logger *slog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{store: ts, logger: logger}
}

func (h *TaxonomyHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListActive(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []model.Taxonomy{}
	}
	writeJSON(w, http.StatusOK, items)
}

type taxonomyRequest struct {
	Name        string `json:"name" validate:"min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	Image       string `json:"image" validate:"omitempty,url"`
	SortOrder   int    `json:"sortOrder" validate:"gte=0"`
	IsActive    *bool  `json:"isActive"`
}

func (h *TaxonomyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taxonomyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := checkStruct(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	slug := recipe.Slugify(req.Name)
	if slug == "" {
		writeError(w, r, h.logger, apperr.Invalid("name must contain letters or digits"))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	t, err := h.store.Create(r.Context(), store.TaxonomyInput{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Image:       req.Image,
		SortOrder:   req.SortOrder,
		IsActive:    active,
	})
	if errors.Is(err, apperr.ErrConflict) {
		writeMessage(w, r, http.StatusConflict, "a "+h.store.Label()+" with this name already exists")
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
