package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/store"
)

const (
	defaultTagLimit = 20
	maxTagLimit     = 100
)

type TagHandler struct {
	tags   *store.TagStore
	logger *slog.Logger
}

func NewTagHandler(ts *store.TagStore, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: ts, logger: logger}
}

// Popular serves GET /api/tags?limit=N.
func (h *TagHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultTagLimit)
	if limit < 1 {
		limit = defaultTagLimit
	}
	if limit > maxTagLimit {
		limit = maxTagLimit
	}

	tags, err := h.tags.Popular(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}
