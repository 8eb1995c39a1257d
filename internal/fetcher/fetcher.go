// Package fetcher retrieves video descriptions from YouTube.
package fetcher

import (
	"context"

	"tubelinks/internal/domain"
)

// Fetcher retrieves the metadata of a single video.
type Fetcher interface {
	// FetchVideo returns the video's title and verbatim description.
	// Failures are *domain.FetchError values of kind domain.ErrNotFound or
	// domain.ErrTransient. Implementations do not retry and do not cache.
	FetchVideo(ctx context.Context, id domain.VideoID) (domain.Video, error)
}

const (
	sourceAPI    = "api"
	sourceScrape = "scrape"
)
