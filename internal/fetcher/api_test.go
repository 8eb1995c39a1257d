package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"tubelinks/internal/domain"
)

const (
	okBody    = `{"items":[{"snippet":{"title":"Never Gonna Give You Up","description":"Merch https://shop.example.com\nAds https://ads.example.com/x"}}]}`
	emptyBody = `{"items":[]}`
)

func apiError(code int, reason string) string {
	return fmt.Sprintf(`{"error":{"code":%d,"message":%q,"errors":[{"domain":"youtube","reason":%q,"message":%q}]}}`,
		code, reason, reason, reason)
}

// fakeYouTube serves videos.list responses keyed by video id.
func fakeYouTube(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if !strings.HasSuffix(r.URL.Path, "/videos") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("id") {
		case "dQw4w9WgXcQ":
			_, _ = io.WriteString(w, okBody)
		case "emptydesc01":
			_, _ = io.WriteString(w, `{"items":[{"snippet":{"title":"Quiet","description":""}}]}`)
		case "missing0001":
			_, _ = io.WriteString(w, emptyBody)
		case "private0001":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, apiError(http.StatusForbidden, "videoForbidden"))
		case "restrict001":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, apiError(http.StatusForbidden, "forbidden"))
		case "noaccess001":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, apiError(http.StatusForbidden, "accessNotConfigured"))
		case "badkey00001":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, apiError(http.StatusBadRequest, "keyInvalid"))
		case "gone0000001":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, apiError(http.StatusNotFound, "videoNotFound"))
		case "quota000001":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, apiError(http.StatusForbidden, "quotaExceeded"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, apiError(http.StatusInternalServerError, "backendError"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestAPIFetcher(t *testing.T, srv *httptest.Server) *APIFetcher {
	t.Helper()
	f, err := NewAPIFetcher(context.Background(), "test-key", quietLogger(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return f
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchVideo(ctx context.Context, id domain.VideoID) (domain.Video, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Video), args.Error(1)
}

func TestNewAPIFetcher_RequiresKey(t *testing.T) {
	_, err := NewAPIFetcher(context.Background(), "", quietLogger())
	assert.Error(t, err)
}

func TestAPIFetcher_Success(t *testing.T) {
	var calls int32
	f := newTestAPIFetcher(t, fakeYouTube(t, &calls))

	video, err := f.FetchVideo(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, domain.VideoID("dQw4w9WgXcQ"), video.ID)
	assert.Equal(t, "Never Gonna Give You Up", video.Title)
	assert.Equal(t, "Merch https://shop.example.com\nAds https://ads.example.com/x", video.Description)

	// No caching: a second call hits the API again.
	_, err = f.FetchVideo(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAPIFetcher_EmptyDescription(t *testing.T) {
	var calls int32
	f := newTestAPIFetcher(t, fakeYouTube(t, &calls))

	video, err := f.FetchVideo(context.Background(), "emptydesc01")
	require.NoError(t, err)
	assert.Equal(t, "", video.Description)
}

func TestAPIFetcher_ErrorClassification(t *testing.T) {
	tests := []struct {
		id   domain.VideoID
		want error
	}{
		{"missing0001", domain.ErrNotFound},
		{"private0001", domain.ErrNotFound},
		{"gone0000001", domain.ErrNotFound},
		{"quota000001", domain.ErrTransient},
		{"badkey00001", domain.ErrTransient},
		{"noaccess001", domain.ErrTransient},
		{"restrict001", domain.ErrTransient},
		{"broken00001", domain.ErrTransient},
	}
	var calls int32
	f := newTestAPIFetcher(t, fakeYouTube(t, &calls))
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			_, err := f.FetchVideo(context.Background(), tt.id)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			if errors.Is(tt.want, domain.ErrTransient) {
				assert.NotErrorIs(t, err, domain.ErrNotFound)
			}

			var fe *domain.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.id, fe.VideoID)
			assert.Equal(t, "api", fe.Source)
		})
	}
}

func TestAPIFetcher_CancelledContextIsTransient(t *testing.T) {
	var calls int32
	f := newTestAPIFetcher(t, fakeYouTube(t, &calls))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchVideo(ctx, "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestAPIFetcher_QuotaFallsBack(t *testing.T) {
	var calls int32
	f := newTestAPIFetcher(t, fakeYouTube(t, &calls))
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	fb := &mockFetcher{}
	fb.On("FetchVideo", mock.Anything, domain.VideoID("quota000001")).
		Return(domain.Video{ID: "quota000001", Description: "from fallback"}, nil).Once()
	fb.On("FetchVideo", mock.Anything, domain.VideoID("dQw4w9WgXcQ")).
		Return(domain.Video{ID: "dQw4w9WgXcQ", Description: "also fallback"}, nil).Once()
	f.SetFallback(fb)

	video, err := f.FetchVideo(context.Background(), "quota000001")
	require.NoError(t, err)
	assert.Equal(t, "from fallback", video.Description)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Within the cooldown the API is skipped entirely.
	video, err = f.FetchVideo(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "also fallback", video.Description)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// After the cooldown the API is tried again.
	now = now.Add(QuotaCooldown + time.Second)
	video, err = f.FetchVideo(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", video.Title)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	fb.AssertExpectations(t)
}

func TestAPIFetcher_NotFoundDoesNotFallBack(t *testing.T) {
	var calls int32
	f := newTestAPIFetcher(t, fakeYouTube(t, &calls))
	fb := &mockFetcher{}
	f.SetFallback(fb)

	_, err := f.FetchVideo(context.Background(), "private0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	fb.AssertNotCalled(t, "FetchVideo", mock.Anything, mock.Anything)
}
