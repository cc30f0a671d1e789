package auth

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"chef_ann", true},
		{"abc", true},
		{"ab", false},
		{strings.Repeat("a", 31), true},
		{strings.Repeat("a", 32), false},
		{"chef-ann", false},
		{"chef ann", false},
		{"Chef123", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateUsername(tt.in); got != tt.want {
			t.Errorf("ValidateUsername(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"secret1", true},
		{"12345", false},
		{"123456", true},
		{strings.Repeat("x", 255), true},
		{strings.Repeat("x", 256), false},
	}
	for _, tt := range tests {
		if got := ValidatePassword(tt.in); got != tt.want {
			t.Errorf("ValidatePassword(len %d) = %v, want %v", len(tt.in), got, tt.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ann@example.com", true},
		{"ann@example", false},
		{"ann example.com", false},
		{"@example.com", false},
		{"ann@@example.com", false},
		{strings.Repeat("a", 320) + "@example.com", false},
	}
	for _, tt := range tests {
		if got := ValidateEmail(tt.in); got != tt.want {
			t.Errorf("ValidateEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUsernameBase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ann.Smith@example.com", "ann_smith"},
		{"chef+tag@example.com", "chef_tag"},
		{"a@example.com", "a__"},
		{strings.Repeat("x", 40) + "@example.com", strings.Repeat("x", 27)},
	}
	for _, tt := range tests {
		got := UsernameBase(tt.in)
		if got != tt.want {
			t.Errorf("UsernameBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !ValidateUsername(got + "99") {
			t.Errorf("UsernameBase(%q) + suffix does not validate", tt.in)
		}
	}
}
