package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateUsername reports whether u is 3-31 characters of letters, digits
// and underscores.
func ValidateUsername(u string) bool {
	return len(u) >= 3 && len(u) <= 31 && usernamePattern.MatchString(u)
}

// ValidatePassword reports whether p is 6-255 characters long.
func ValidatePassword(p string) bool {
	n := utf8.RuneCountInString(p)
	return n >= 6 && n <= 255
}

// ValidateEmail reports whether e has the shape local@domain.tld.
func ValidateEmail(e string) bool {
	return len(e) <= 320 && emailPattern.MatchString(e)
}

var usernameStrip = regexp.MustCompile(`[^a-z0-9_]`)

// UsernameBase derives a username stem from an email's local part. The
// result is short enough to take a numeric suffix and still validate.
func UsernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	base := usernameStrip.ReplaceAllString(strings.ToLower(local), "_")
	if len(base) > 27 {
		base = base[:27]
	}
	for len(base) < 3 {
		base += "_"
	}
	return base
}
