// Package pipeline turns a chat message into the filtered links of a video description.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"tubelinks/internal/domain"
	"tubelinks/internal/fetcher"
	"tubelinks/internal/filter"
	"tubelinks/internal/links"
	"tubelinks/internal/youtube"
)

// RetryPolicy bounds how often a transient fetch failure is retried.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one. Zero disables retries.
	MaxRetries uint64
	// InitialInterval is the first backoff delay; later ones grow exponentially.
	InitialInterval time.Duration
	// MaxInterval caps a single backoff delay.
	MaxInterval time.Duration
	// AttemptTimeout bounds each fetch attempt. Zero means no per-attempt limit.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy retries twice, starting at half a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxRetries), ctx)
}

// Outcome is what the bot shows for a processed URL.
type Outcome struct {
	VideoID domain.VideoID
	Title   string
	// Links are the links that survived the user's filters.
	Links []string
	// Total is the number of distinct links in the description.
	Total int
	// Excluded is the number of links the filters removed.
	Excluded int
}

// Service runs the extraction pipeline for one request at a time. It is safe
// for concurrent use as long as its Fetcher and Store are.
type Service struct {
	fetcher fetcher.Fetcher
	store   filter.Store
	retry   RetryPolicy
	log     logrus.FieldLogger

	findID  func(string) (domain.VideoID, bool)
	extract func(string) []string
	apply   func([]string, domain.WordSet) filter.Result
}

// NewService wires the pipeline stages.
func NewService(f fetcher.Fetcher, store filter.Store, retry RetryPolicy, logger logrus.FieldLogger) *Service {
	return &Service{
		fetcher: f,
		store:   store,
		retry:   retry,
		log:     logger.WithField("component", "pipeline"),
		findID:  youtube.FindVideoID,
		extract: links.Extract,
		apply:   filter.Apply,
	}
}

// Process finds the first YouTube URL in text, fetches the video's description
// and returns its HTTPS links minus those matching the user's filters.
//
// Expected failures come back wrapped around domain.ErrInvalidURL,
// domain.ErrNotFound, domain.ErrTransient, domain.ErrNoLinks or
// domain.ErrEmptyResult. For ErrEmptyResult the Outcome is still filled in.
func (s *Service) Process(ctx context.Context, user domain.UserID, text string) (Outcome, error) {
	id, ok := s.findID(text)
	if !ok {
		return Outcome{}, domain.ErrInvalidURL
	}
	log := s.log.WithFields(logrus.Fields{"user_id": user, "video_id": id})

	video, err := s.fetch(ctx, id, log)
	if err != nil {
		return Outcome{VideoID: id}, err
	}

	found := s.extract(video.Description)
	out := Outcome{VideoID: id, Title: video.Title, Total: len(found)}
	if len(found) == 0 {
		log.Info("Description has no links")
		return out, domain.ErrNoLinks
	}

	words, err := s.store.GetFilters(ctx, user)
	if err != nil {
		return out, fmt.Errorf("load filters: %w", err)
	}
	res := s.apply(found, words)
	out.Links = res.Kept
	out.Excluded = res.Excluded

	log.WithFields(logrus.Fields{
		"total":    out.Total,
		"excluded": out.Excluded,
	}).Info("Links extracted")

	if len(out.Links) == 0 {
		return out, domain.ErrEmptyResult
	}
	return out, nil
}

// fetch retries transient failures according to the retry policy.
func (s *Service) fetch(ctx context.Context, id domain.VideoID, log logrus.FieldLogger) (domain.Video, error) {
	var video domain.Video
	op := func() error {
		actx, cancel := ctx, context.CancelFunc(func() {})
		if s.retry.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, s.retry.AttemptTimeout)
		}
		defer cancel()

		v, err := s.fetcher.FetchVideo(actx, id)
		if err != nil {
			if errors.Is(err, domain.ErrTransient) {
				return err
			}
			return backoff.Permanent(err)
		}
		video = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithField("wait", wait.String()).Warn("Fetch failed, retrying")
	}

	err := backoff.RetryNotify(op, s.retry.backOff(ctx), notify)
	if err != nil {
		// A cancelled context surfaces as a plain context error; keep it in the taxonomy.
		if !errors.Is(err, domain.ErrTransient) && !errors.Is(err, domain.ErrNotFound) {
			err = domain.Transient(id, "pipeline", err)
		}
		return domain.Video{}, err
	}
	return video, nil
}
