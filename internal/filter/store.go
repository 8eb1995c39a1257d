// Package filter holds per-user filter words and applies them to link lists.
package filter

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"tubelinks/internal/domain"
)

// Store owns every user's WordSet. Implementations must make each call atomic
// per user and never let one user's calls touch another user's set.
// Returned sets are copies.
type Store interface {
	// GetFilters returns the user's words, creating them from the defaults on first access.
	GetFilters(ctx context.Context, user domain.UserID) (domain.WordSet, error)

	// AddFilter normalizes word and adds it. Adding a present word is a no-op
	// and reports false.
	AddFilter(ctx context.Context, user domain.UserID, word string) (bool, error)

	// RemoveFilter normalizes word and removes it, reporting false if it was absent.
	RemoveFilter(ctx context.Context, user domain.UserID, word string) (bool, error)

	// ResetFilters restores the default words.
	ResetFilters(ctx context.Context, user domain.UserID) error

	// ReplaceFilters sets the user's words to the normalized form of words.
	// An empty list leaves the user with no filters.
	ReplaceFilters(ctx context.Context, user domain.UserID, words []string) error
}

// Normalize lowercases and trims a filter word.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// NormalizeAll normalizes words, dropping blanks and duplicates.
func NormalizeAll(words []string) domain.WordSet {
	out := lo.Uniq(lo.FilterMap(words, func(w string, _ int) (string, bool) {
		w = Normalize(w)
		return w, w != ""
	}))
	return domain.WordSet(out)
}

// NewDefaultSet validates and normalizes the configured default words.
// Blank entries or entries with inner whitespace are rejected: such a list is
// a configuration mistake, not something to silently repair.
func NewDefaultSet(words []string) (domain.WordSet, error) {
	for i, w := range words {
		n := Normalize(w)
		if n == "" {
			return nil, fmt.Errorf("default filter word %d is blank", i)
		}
		if strings.IndexFunc(n, unicode.IsSpace) >= 0 {
			return nil, fmt.Errorf("default filter word %q contains whitespace", w)
		}
	}
	return NormalizeAll(words), nil
}

// WithWord appends word to set unless present. set is never modified in place.
func WithWord(set domain.WordSet, word string) (domain.WordSet, bool) {
	if word == "" || set.Contains(word) {
		return set, false
	}
	out := append(set.Clone(), word)
	return out, true
}

// WithoutWord drops word from set. set is never modified in place.
func WithoutWord(set domain.WordSet, word string) (domain.WordSet, bool) {
	if !set.Contains(word) {
		return set, false
	}
	return domain.WordSet(lo.Without(set, word)), true
}
