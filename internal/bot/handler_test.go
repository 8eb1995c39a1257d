package bot

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tubelinks/internal/config"
	"tubelinks/internal/domain"
	"tubelinks/internal/filter"
	"tubelinks/internal/pipeline"
)

// fakeSender records everything the handler sends or edits.
type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	edited  []string
	nextID  int
	editErr error
}

func (f *fakeSender) SendMessage(_ context.Context, p *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, p.Text)
	return &models.Message{ID: f.nextID, Text: p.Text}, nil
}

func (f *fakeSender) EditMessageText(_ context.Context, p *tgbot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edited = append(f.edited, p.Text)
	return &models.Message{ID: p.MessageID, Text: p.Text}, nil
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(ctx context.Context, user domain.UserID, text string) (pipeline.Outcome, error) {
	args := m.Called(ctx, user, text)
	return args.Get(0).(pipeline.Outcome), args.Error(1)
}

func textUpdate(user int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   100,
		Text: text,
		From: &models.User{ID: user},
		Chat: models.Chat{ID: user},
	}}
}

func newTestHandler(t *testing.T) (*Handler, *fakeSender, *mockProcessor, filter.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sender := &fakeSender{}
	proc := &mockProcessor{}
	store := filter.NewMemoryStore(domain.WordSet{"ads", "bit.ly"}, logger)
	cfg := config.Config{MaxLinks: 20}
	return newHandler(sender, cfg, store, proc, logger), sender, proc, store
}

func TestDefaultHandler_Success(t *testing.T) {
	h, sender, proc, _ := newTestHandler(t)
	text := "https://youtu.be/dQw4w9WgXcQ"
	proc.On("Process", mock.Anything, domain.UserID(7), text).Return(pipeline.Outcome{
		VideoID: "dQw4w9WgXcQ",
		Links:   []string{"https://good.com"},
		Total:   1,
	}, nil)

	h.defaultHandler(context.Background(), nil, textUpdate(7, text))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Processing")
	require.Len(t, sender.edited, 1)
	assert.Contains(t, sender.edited[0], "1. https://good.com")
	proc.AssertExpectations(t)
}

func TestDefaultHandler_InvalidURLSkipsPipeline(t *testing.T) {
	h, sender, proc, _ := newTestHandler(t)

	h.defaultHandler(context.Background(), nil, textUpdate(7, "hello there"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, invalidURLText, sender.sent[0])
	proc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
}

func TestDefaultHandler_ErrorOutcomes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", domain.NotFound("dQw4w9WgXcQ", "api", nil), "Video not found"},
		{"transient", domain.Transient("dQw4w9WgXcQ", "api", errors.New("503")), "try again later"},
		{"no links", domain.ErrNoLinks, "No HTTPS links"},
		{"empty result", domain.ErrEmptyResult, "filtered out"},
		{"unexpected", errors.New("boom"), "unexpected error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sender, proc, _ := newTestHandler(t)
			proc.On("Process", mock.Anything, mock.Anything, mock.Anything).
				Return(pipeline.Outcome{VideoID: "dQw4w9WgXcQ", Total: 2, Excluded: 2}, tt.err)

			h.defaultHandler(context.Background(), nil, textUpdate(7, "https://youtu.be/dQw4w9WgXcQ"))

			require.Len(t, sender.edited, 1)
			assert.Contains(t, sender.edited[0], tt.want)
		})
	}
}

func TestDefaultHandler_EditFailureFallsBackToSend(t *testing.T) {
	h, sender, proc, _ := newTestHandler(t)
	sender.editErr = errors.New("message to edit not found")
	proc.On("Process", mock.Anything, mock.Anything, mock.Anything).
		Return(pipeline.Outcome{Links: []string{"https://good.com"}, Total: 1}, nil)

	h.defaultHandler(context.Background(), nil, textUpdate(7, "https://youtu.be/dQw4w9WgXcQ"))

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1], "https://good.com")
}

func TestDefaultHandler_IgnoresUpdatesWithoutSender(t *testing.T) {
	h, sender, proc, _ := newTestHandler(t)

	h.defaultHandler(context.Background(), nil, &models.Update{})
	h.defaultHandler(context.Background(), nil, &models.Update{Message: &models.Message{Text: "https://youtu.be/dQw4w9WgXcQ"}})

	assert.Empty(t, sender.sent)
	proc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
}

func TestDefaultHandler_UnknownCommand(t *testing.T) {
	h, sender, _, _ := newTestHandler(t)

	h.defaultHandler(context.Background(), nil, textUpdate(7, "/nope"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Unknown command")
}

func TestFilterCommands(t *testing.T) {
	ctx := context.Background()
	h, sender, _, store := newTestHandler(t)

	h.addFilterHandler(ctx, nil, textUpdate(7, "/addfilter Spam"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], `Added "Spam"`)

	h.addFilterHandler(ctx, nil, textUpdate(7, "/addfilter spam"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], "already in your filter list")

	h.addFilterHandler(ctx, nil, textUpdate(7, "/addfilter"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], "Usage: /addfilter")

	words, err := store.GetFilters(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.WordSet{"ads", "bit.ly", "spam"}, words)

	h.removeFilterHandler(ctx, nil, textUpdate(7, "/removefilter ADS"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], `Removed "ADS"`)

	h.removeFilterHandler(ctx, nil, textUpdate(7, "/removefilter ads"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], "was not found")

	h.showFilterHandler(ctx, nil, textUpdate(7, "/showfilter"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], "• bit.ly\n• spam")

	h.filterHandler(ctx, nil, textUpdate(7, "/filter promo  Sponsor"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], "Filter updated")
	words, err = store.GetFilters(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.WordSet{"promo", "sponsor"}, words)

	h.filterHandler(ctx, nil, textUpdate(7, "/filter"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], "2 filter(s) active")

	h.clearFilterHandler(ctx, nil, textUpdate(7, "/clearfilter"))
	words, err = store.GetFilters(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, words)

	h.resetFiltersHandler(ctx, nil, textUpdate(7, "/resetfilters"))
	assert.Contains(t, sender.sent[len(sender.sent)-1], "reset to defaults")
	words, err = store.GetFilters(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.WordSet{"ads", "bit.ly"}, words)

	// Another user never saw any of it.
	other, err := store.GetFilters(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, domain.WordSet{"ads", "bit.ly"}, other)
}

func TestAddFilterHandler_RejectsWordsWithSpaces(t *testing.T) {
	ctx := context.Background()
	h, sender, _, store := newTestHandler(t)

	h.addFilterHandler(ctx, nil, textUpdate(7, "/addfilter foo bar"))
	last := sender.sent[len(sender.sent)-1]
	assert.Contains(t, last, "can't contain spaces")
	assert.NotContains(t, last, "Added")

	words, err := store.GetFilters(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.WordSet{"ads", "bit.ly"}, words)
}

func TestHelpHandler(t *testing.T) {
	h, sender, _, _ := newTestHandler(t)
	h.helpHandler(context.Background(), nil, textUpdate(7, "/start"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, helpText, sender.sent[0])
}

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, "", commandArgs("/addfilter"))
	assert.Equal(t, "spam", commandArgs("/addfilter spam"))
	assert.Equal(t, "two words", commandArgs("/addfilter   two words  "))
	assert.Equal(t, "x", commandArgs("/addfilter@tubelinks_bot\nx"))
}

func TestRequestIDMiddleware(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	var got string
	next := func(ctx context.Context, _ *tgbot.Bot, _ *models.Update) {
		got, _ = ctx.Value(requestIDKey{}).(string)
	}
	h.requestIDMiddleware(next)(context.Background(), nil, &models.Update{})
	assert.Len(t, got, 36)
}

func TestWaitHandlers_BlocksUntilUpdatesFinish(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	next := func(context.Context, *tgbot.Bot, *models.Update) {
		close(entered)
		<-release
	}
	go h.requestIDMiddleware(next)(context.Background(), nil, &models.Update{})
	<-entered

	waited := make(chan struct{})
	go func() {
		h.waitHandlers()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("waitHandlers returned while an update was still being handled")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("waitHandlers did not return after the update finished")
	}
}
