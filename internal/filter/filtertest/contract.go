// Package filtertest checks filter.Store implementations against a shared contract.
package filtertest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubelinks/internal/domain"
	"tubelinks/internal/filter"
)

// Defaults is the default word set the contract expects the factory to use.
var Defaults = domain.WordSet{"doubleclick", "amzn.to", "bit.ly"}

// Factory builds a fresh, empty store seeded with defaults.
type Factory func(t *testing.T, defaults domain.WordSet) filter.Store

// RunStoreContract runs the behaviour every Store must share.
func RunStoreContract(t *testing.T, newStore Factory) {
	t.Run("fresh user gets defaults", func(t *testing.T) {
		s := newStore(t, Defaults)
		got, err := s.GetFilters(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, Defaults, got)
	})

	t.Run("add then reset", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, Defaults)

		added, err := s.AddFilter(ctx, 1, "spam")
		require.NoError(t, err)
		assert.True(t, added)

		got, err := s.GetFilters(ctx, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, append(Defaults.Clone(), "spam"), got)

		require.NoError(t, s.ResetFilters(ctx, 1))
		got, err = s.GetFilters(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, Defaults, got)
	})

	t.Run("add normalizes and is idempotent", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, Defaults)

		added, err := s.AddFilter(ctx, 1, "  Spam ")
		require.NoError(t, err)
		assert.True(t, added)
		added, err = s.AddFilter(ctx, 1, "SPAM")
		require.NoError(t, err)
		assert.False(t, added)
		added, err = s.AddFilter(ctx, 1, "   ")
		require.NoError(t, err)
		assert.False(t, added)

		got, err := s.GetFilters(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, len(Defaults)+1)
		assert.True(t, got.Contains("spam"))
	})

	t.Run("remove", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, Defaults)

		removed, err := s.RemoveFilter(ctx, 1, "Bit.ly")
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = s.RemoveFilter(ctx, 1, "bit.ly")
		require.NoError(t, err)
		assert.False(t, removed)
		removed, err = s.RemoveFilter(ctx, 1, "never-added")
		require.NoError(t, err)
		assert.False(t, removed)

		got, err := s.GetFilters(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.WordSet{"doubleclick", "amzn.to"}, got)
	})

	t.Run("replace and clear", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, Defaults)

		require.NoError(t, s.ReplaceFilters(ctx, 1, []string{"Ads", "", "ads", "promo"}))
		got, err := s.GetFilters(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.WordSet{"ads", "promo"}, got)

		require.NoError(t, s.ReplaceFilters(ctx, 1, nil))
		got, err = s.GetFilters(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("returned sets are copies", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, Defaults)

		got, err := s.GetFilters(ctx, 1)
		require.NoError(t, err)
		got[0] = "mutated"

		again, err := s.GetFilters(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, Defaults, again)
	})

	t.Run("users are isolated", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, Defaults)

		_, err := s.AddFilter(ctx, 1, "spam")
		require.NoError(t, err)
		_, err = s.RemoveFilter(ctx, 2, "doubleclick")
		require.NoError(t, err)

		one, err := s.GetFilters(ctx, 1)
		require.NoError(t, err)
		two, err := s.GetFilters(ctx, 2)
		require.NoError(t, err)
		three, err := s.GetFilters(ctx, 3)
		require.NoError(t, err)

		assert.True(t, one.Contains("spam"))
		assert.True(t, one.Contains("doubleclick"))
		assert.False(t, two.Contains("spam"))
		assert.False(t, two.Contains("doubleclick"))
		assert.Equal(t, Defaults, three)
	})

	t.Run("concurrent users", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, Defaults)

		const users, words = 8, 20
		var wg sync.WaitGroup
		for u := 1; u <= users; u++ {
			wg.Add(1)
			go func(user domain.UserID) {
				defer wg.Done()
				for i := 0; i < words; i++ {
					_, err := s.AddFilter(ctx, user, fmt.Sprintf("u%d-w%d", user, i))
					assert.NoError(t, err)
				}
			}(domain.UserID(u))
		}
		wg.Wait()

		for u := 1; u <= users; u++ {
			got, err := s.GetFilters(ctx, domain.UserID(u))
			require.NoError(t, err)
			assert.Len(t, got, len(Defaults)+words)
			for _, w := range got {
				if !Defaults.Contains(w) {
					assert.Contains(t, w, fmt.Sprintf("u%d-", u))
				}
			}
		}
	})

	t.Run("concurrent calls for one user", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, Defaults)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.AddFilter(ctx, 1, fmt.Sprintf("w%d", i))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := s.GetFilters(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, len(Defaults)+20)
	})
}
