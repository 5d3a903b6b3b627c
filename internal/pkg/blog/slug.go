// Package blog holds the pieces of the public blog that are not plain CRUD:
// slugs, content rendering, feeds and machine translation.
package blog

import (
	"errors"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/gosimple/slug"
)

const (
	slugSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	slugSuffixLength   = 6
	maxSlugAttempts    = 5
	maxSlugLength      = 200
)

var ErrInvalidSlug = errors.New("blog: slug is empty after normalisation")

// SlugExistsFunc reports whether a slug is already taken.
type SlugExistsFunc func(candidate string) (bool, error)

// NormalizeSlug turns free text into a URL slug.
func NormalizeSlug(s string) string {
	out := slug.Make(strings.TrimSpace(s))
	if len(out) > maxSlugLength {
		out = strings.Trim(out[:maxSlugLength], "-")
	}
	return out
}

// UniqueSlug derives a slug from base (a requested slug or the title) and
// appends a random suffix while it collides.
func UniqueSlug(base string, exists SlugExistsFunc) (string, error) {
	candidate := NormalizeSlug(base)
	if candidate == "" {
		return "", ErrInvalidSlug
	}
	taken, err := exists(candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	for i := 0; i < maxSlugAttempts; i++ {
		suffix, err := gonanoid.Generate(slugSuffixAlphabet, slugSuffixLength)
		if err != nil {
			return "", fmt.Errorf("generate slug suffix: %w", err)
		}
		next := candidate + "-" + suffix
		taken, err := exists(next)
		if err != nil {
			return "", err
		}
		if !taken {
			return next, nil
		}
	}
	return "", fmt.Errorf("blog: no free slug for %q after %d attempts", candidate, maxSlugAttempts)
}
