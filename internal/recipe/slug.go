package recipe

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	MaxSlugLength = 200
	MaxSlugProbes = 100
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugSeparate = regexp.MustCompile(`[\s_-]+`)
)

// Slugify lowercases s, strips everything but word characters, spaces and
// hyphens, collapses separators to single hyphens and caps the length.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparate.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}

// BaseSlug is Slugify with a fallback for titles that strip to nothing.
func BaseSlug(title string) string {
	if s := Slugify(title); s != "" {
		return s
	}
	return "recipe"
}

// SlugCandidate returns the n-th probe for base: base, base-1, base-2, ...
func SlugCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// HasBase reports whether slug is base or base-N for a positive N.
func HasBase(slug, base string) bool {
	if slug == base {
		return true
	}
	rest, ok := strings.CutPrefix(slug, base+"-")
	if !ok || rest == "" {
		return false
	}
	n, err := strconv.Atoi(rest)
	return err == nil && n > 0 && strconv.Itoa(n) == rest
}
