package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"tubelinks/internal/domain"
)

// QuotaCooldown is how long requests go straight to the fallback after the
// Data API reports an exhausted quota.
const QuotaCooldown = time.Hour

// quotaReasons are error reasons the Data API uses for quota and rate limits.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// notFoundReasons are 403 reasons that describe the video rather than the
// caller's key or project.
var notFoundReasons = map[string]bool{
	"videoNotFound":  true,
	"videoForbidden": true,
	"notFound":       true,
}

// APIFetcher implements Fetcher with the YouTube Data API v3.
type APIFetcher struct {
	service *youtube.Service
	log     logrus.FieldLogger
	now     func() time.Time

	mu             sync.Mutex
	fallback       Fetcher
	exhaustedUntil time.Time
}

// NewAPIFetcher creates a Data API client authenticated with apiKey.
// Extra client options are appended after the key, mainly for tests.
func NewAPIFetcher(ctx context.Context, apiKey string, logger logrus.FieldLogger, opts ...option.ClientOption) (*APIFetcher, error) {
	if apiKey == "" {
		return nil, errors.New("youtube api key required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &APIFetcher{
		service: service,
		log:     logger.WithField("component", "api_fetcher"),
		now:     time.Now,
	}, nil
}

// SetFallback sets the fetcher used while the API quota is exhausted.
func (f *APIFetcher) SetFallback(fb Fetcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = fb
}

// fallbackFor returns the fallback when the quota is known to be exhausted.
func (f *APIFetcher) fallbackFor() Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fallback != nil && f.now().Before(f.exhaustedUntil) {
		return f.fallback
	}
	return nil
}

// markExhausted records a quota error and returns the fallback, if any.
func (f *APIFetcher) markExhausted() Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exhaustedUntil = f.now().Add(QuotaCooldown)
	return f.fallback
}

// FetchVideo calls videos.list for id.
func (f *APIFetcher) FetchVideo(ctx context.Context, id domain.VideoID) (domain.Video, error) {
	log := f.log.WithField("video_id", id)

	if fb := f.fallbackFor(); fb != nil {
		log.Debug("API quota exhausted, using fallback fetcher")
		return fb.FetchVideo(ctx, id)
	}

	resp, err := f.service.Videos.List([]string{"snippet"}).
		Id(string(id)).
		Fields("items(snippet(title,description))").
		Context(ctx).
		Do()
	if err != nil {
		ferr := classifyAPIError(ctx, id, err)
		if isQuotaError(err) {
			if fb := f.markExhausted(); fb != nil {
				log.WithError(err).Warn("API quota exhausted, falling back")
				return fb.FetchVideo(ctx, id)
			}
		}
		if errors.Is(ferr, domain.ErrNotFound) {
			log.WithError(err).Info("Data API has no such video")
		} else {
			log.WithError(err).Error("Data API request failed")
		}
		return domain.Video{}, ferr
	}

	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		log.Info("Data API returned no video")
		return domain.Video{}, domain.NotFound(id, sourceAPI, nil)
	}

	snippet := resp.Items[0].Snippet
	log.WithField("title", snippet.Title).Info("Fetched video description")
	return domain.Video{
		ID:          id,
		Title:       snippet.Title,
		Description: snippet.Description,
	}, nil
}

// classifyAPIError maps a Data API failure onto the fetch error taxonomy.
func classifyAPIError(ctx context.Context, id domain.VideoID, err error) *domain.FetchError {
	if ctx.Err() != nil {
		return domain.Transient(id, sourceAPI, err)
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return domain.Transient(id, sourceAPI, err)
	}
	switch {
	case gerr.Code == http.StatusNotFound:
		return domain.NotFound(id, sourceAPI, err)
	case gerr.Code == http.StatusForbidden && hasReason(gerr, notFoundReasons):
		return domain.NotFound(id, sourceAPI, err)
	default:
		// Missing videos come back as 200 with no items. A 400 or any other 403
		// is a key or project problem and says nothing about the video.
		return domain.Transient(id, sourceAPI, err)
	}
}

func hasReason(gerr *googleapi.Error, reasons map[string]bool) bool {
	for _, item := range gerr.Errors {
		if reasons[item.Reason] {
			return true
		}
	}
	return false
}

func isQuotaError(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return hasReason(gerr, quotaReasons)
}
