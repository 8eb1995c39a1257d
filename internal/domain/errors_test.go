package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_IsAndAs(t *testing.T) {
	cause := context.DeadlineExceeded
	err := fmt.Errorf("fetching: %w", Transient("dQw4w9WgXcQ", "api", cause))

	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrNotFound))

	var fe *FetchError
	if assert.True(t, errors.As(err, &fe)) {
		assert.Equal(t, VideoID("dQw4w9WgXcQ"), fe.VideoID)
		assert.Equal(t, "api", fe.Source)
	}
	assert.Contains(t, err.Error(), "api fetch dQw4w9WgXcQ")
}

func TestFetchError_NilCause(t *testing.T) {
	err := NotFound("abcdefghijk", "scrape", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "scrape fetch abcdefghijk: video not found", err.Error())
}

func TestWordSet_CloneIsIndependent(t *testing.T) {
	orig := WordSet{"ads", "spam"}
	c := orig.Clone()
	c[0] = "changed"
	assert.Equal(t, "ads", orig[0])
	assert.True(t, orig.Contains("spam"))
	assert.False(t, orig.Contains("changed"))
	assert.NotNil(t, WordSet(nil).Clone())
}
