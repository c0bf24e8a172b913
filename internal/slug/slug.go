// Package slug derives URL-safe unique identifiers from display names.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxAttempts bounds the numeric suffix search before a random suffix is used.
const MaxAttempts = 1000

var (
	disallowed   = regexp.MustCompile(`[^a-z0-9_\s-]+`)
	separators   = regexp.MustCompile(`[\s_]+`)
	repeatedDash = regexp.MustCompile(`-{2,}`)
)

// ExistsFunc reports whether a slug is already taken. Implementations exclude
// the record being updated, if any.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Normalize lowercases name and reduces it to [a-z0-9-].
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = disallowed.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	s = repeatedDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "item"
	}
	return s
}

// DoctorBase normalizes a doctor's display name and ensures a "dr-" prefix.
func DoctorBase(name string) string {
	s := Normalize(name)
	if strings.HasPrefix(s, "dr-") || s == "dr" {
		return s
	}
	return "dr-" + s
}

// Assign returns base, or base-2, base-3, ... whichever is free first.
func Assign(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	candidate := base
	for n := 2; n <= MaxAttempts+1; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug: check %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return fmt.Sprintf("%s-%s", base, strings.ReplaceAll(uuid.NewString(), "-", "")[:8]), nil
}
