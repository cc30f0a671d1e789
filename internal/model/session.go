package model

import "time"

// Session is one signed-in browser. ID is the SHA-256 of the bearer token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
