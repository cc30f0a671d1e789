package handler

import (
	"errors"
	"testing"

	"github.com/dukerupert/mise/internal/apperr"
)

func strPtr(s string) *string { return &s }

func TestProfileRequestEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"ann@example.com", true},
		{"", true},
		{"ann@localhost", false},
		{"ann example@x.io", false},
		{"no-at-sign", false},
	}
	for _, tt := range tests {
		req := profileRequest{Email: strPtr(tt.email)}
		err := checkStruct(req)
		if (err == nil) != tt.ok {
			t.Errorf("email %q: err = %v, want ok = %v", tt.email, err, tt.ok)
		}
		var verr *apperr.ValidationError
		if err != nil && !errors.As(err, &verr) {
			t.Errorf("email %q: err = %T, want *apperr.ValidationError", tt.email, err)
		}
		if verr != nil && len(verr.Problems) != 1 {
			t.Errorf("email %q: problems = %v, want one", tt.email, verr.Problems)
		}
	}
}
