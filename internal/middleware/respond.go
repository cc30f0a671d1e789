package middleware

import (
	"encoding/json"
	"net/http"
)

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":      msg,
		"request_id": RequestIDFromContext(r.Context()),
	})
}
