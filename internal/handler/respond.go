package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/middleware"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status and JSON body. Server-side failures are
// logged with their cause and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := apperr.Status(err)
	body := errorBody{RequestID: middleware.RequestIDFromContext(r.Context())}

	if problems, ok := apperr.Problems(err); ok {
		body.Error = "validation failed"
		body.Details = problems
	} else if status >= 500 {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", body.RequestID,
			"error", err,
		)
		body.Error = "internal server error"
		if status == http.StatusBadGateway {
			body.Error = "upstream service unavailable"
		}
	} else {
		body.Error = err.Error()
	}
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, RequestID: middleware.RequestIDFromContext(r.Context())})
}

// decodeJSON reads a bounded JSON body into v. Malformed bodies are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperr.Invalid("request body too large")
		case errors.Is(err, io.EOF):
			return apperr.Invalid("request body is required")
		default:
			return apperr.Invalid("invalid JSON in request body")
		}
	}
	return nil
}

// parseIDParam reads the recipe id from the {id} path segment, falling back
// to the ?id= query parameter.
func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.URL.Query().Get("id")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("valid recipe ID is required")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return n
}
