package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"tubelinks/internal/domain"
)

const watchURL = "https://www.youtube.com/watch?v="

// playerScript reads the player response YouTube embeds in the watch page.
// It carries the full description, unlike the truncated meta tags.
const playerScript = `() => {
	const r = window.ytInitialPlayerResponse;
	if (!r) return { found: false, status: "MISSING", title: "", description: "" };
	const d = r.videoDetails;
	return {
		found: !!d,
		status: (r.playabilityStatus && r.playabilityStatus.status) || "",
		title: d ? d.title || "" : "",
		description: d ? d.shortDescription || "" : "",
	};
}`

// playerState is the result of playerScript.
type playerState struct {
	Found       bool   `json:"found"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RodFetcher implements Fetcher by loading the watch page in headless Chromium.
// It needs no API key and is used when none is configured or the quota runs out.
type RodFetcher struct {
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewRodFetcher creates a scraping fetcher. timeout bounds each page load.
func NewRodFetcher(timeout time.Duration, logger logrus.FieldLogger) *RodFetcher {
	return &RodFetcher{
		log:     logger.WithField("component", "rod_fetcher"),
		timeout: timeout,
	}
}

// FetchVideo launches a browser, loads the watch page and reads the player response.
func (s *RodFetcher) FetchVideo(ctx context.Context, id domain.VideoID) (video domain.Video, err error) {
	log := s.log.WithField("video_id", id)
	log.Info("Attempting to scrape video description")

	path, exists := launcher.LookPath()
	if !exists {
		log.Error("Cannot find browser executable for rod")
		return domain.Video{}, domain.Transient(id, sourceScrape, errors.New("rod browser dependency not found"))
	}
	u, err := launcher.New().Bin(path).Context(ctx).Launch()
	if err != nil {
		log.WithError(err).Error("Failed to launch browser")
		return domain.Video{}, domain.Transient(id, sourceScrape, fmt.Errorf("failed to launch browser: %w", err))
	}
	browser := rod.New().ControlURL(u)
	if err = browser.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to rod browser")
		return domain.Video{}, domain.Transient(id, sourceScrape, fmt.Errorf("failed to connect to browser: %w", err))
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing rod browser instance")
		} else {
			log.Debug("Rod browser instance closed")
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: watchURL + string(id)})
	if err != nil {
		log.WithError(err).Error("Failed to create rod page")
		return domain.Video{}, domain.Transient(id, sourceScrape, fmt.Errorf("failed to create page: %w", err))
	}

	pageCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	page = page.Context(pageCtx)

	if err = page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			log.WithError(pageCtx.Err()).Warn("Scraping timed out")
		} else {
			log.WithError(err).Error("Failed to wait for page load")
		}
		return domain.Video{}, domain.Transient(id, sourceScrape, fmt.Errorf("failed waiting for page load: %w", err))
	}

	obj, err := page.Eval(playerScript)
	if err != nil {
		log.WithError(err).Error("Failed to evaluate player script")
		return domain.Video{}, domain.Transient(id, sourceScrape, fmt.Errorf("failed to read player response: %w", err))
	}
	var state playerState
	raw, err := json.Marshal(obj.Value)
	if err == nil {
		err = json.Unmarshal(raw, &state)
	}
	if err != nil {
		log.WithError(err).Error("Failed to decode player response")
		return domain.Video{}, domain.Transient(id, sourceScrape, fmt.Errorf("failed to decode player response: %w", err))
	}

	video, err = videoFromPlayer(id, state)
	if err != nil {
		log.WithField("status", state.Status).Info("Watch page has no playable video")
		return domain.Video{}, err
	}
	log.WithField("title", video.Title).Info("Video description scraped successfully")
	return video, nil
}

// videoFromPlayer turns the scraped player state into a Video or a fetch error.
func videoFromPlayer(id domain.VideoID, state playerState) (domain.Video, error) {
	switch state.Status {
	case "ERROR", "LOGIN_REQUIRED", "UNPLAYABLE":
		return domain.Video{}, domain.NotFound(id, sourceScrape, fmt.Errorf("playability status %s", state.Status))
	case "MISSING":
		// No player at all usually means a consent or bot-check interstitial.
		return domain.Video{}, domain.Transient(id, sourceScrape, errors.New("player response missing"))
	}
	if !state.Found {
		return domain.Video{}, domain.NotFound(id, sourceScrape, errors.New("no video details"))
	}
	return domain.Video{ID: id, Title: state.Title, Description: state.Description}, nil
}
