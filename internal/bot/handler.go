package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tubelinks/internal/config"
	"tubelinks/internal/domain"
	"tubelinks/internal/filter"
	"tubelinks/internal/pipeline"
	"tubelinks/internal/youtube"
)

// Sender is the subset of *tgbot.Bot the handlers use to reply.
type Sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *tgbot.EditMessageTextParams) (*models.Message, error)
}

// Processor runs the link pipeline for one message.
type Processor interface {
	Process(ctx context.Context, user domain.UserID, text string) (pipeline.Outcome, error)
}

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot       *tgbot.Bot
	sender    Sender
	cfg       config.Config
	store     filter.Store
	processor Processor
	log       logrus.FieldLogger

	// inflight counts updates still being handled.
	inflight sync.WaitGroup
}

// NewHandler creates a new bot handler instance.
func NewHandler(cfg config.Config, store filter.Store, processor Processor, logger logrus.FieldLogger) (*Handler, error) {
	h := newHandler(nil, cfg, store, processor, logger)

	b, err := tgbot.New(cfg.TelegramBotToken,
		tgbot.WithDefaultHandler(h.defaultHandler),
		tgbot.WithMiddlewares(h.requestIDMiddleware),
	)
	if err != nil {
		h.log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b
	h.sender = b

	h.registerHandlers()

	h.log.Info("Telegram bot handler initialized")
	return h, nil
}

func newHandler(sender Sender, cfg config.Config, store filter.Store, processor Processor, logger logrus.FieldLogger) *Handler {
	return &Handler{
		sender:    sender,
		cfg:       cfg,
		store:     store,
		processor: processor,
		log:       logger.WithField("component", "bot_handler"),
	}
}

// registerHandlers sets up the command handlers. Plain text goes to defaultHandler.
func (h *Handler) registerHandlers() {
	commands := map[string]tgbot.HandlerFunc{
		"start":        h.helpHandler,
		"help":         h.helpHandler,
		"filter":       h.filterHandler,
		"addfilter":    h.addFilterHandler,
		"removefilter": h.removeFilterHandler,
		"showfilter":   h.showFilterHandler,
		"clearfilter":  h.clearFilterHandler,
		"resetfilters": h.resetFiltersHandler,
	}
	for name, fn := range commands {
		h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, name, tgbot.MatchTypeCommand, fn)
		h.log.WithField("command", "/"+name).Debug("Registered command handler")
	}
}

// Start begins polling for updates from Telegram.
// It blocks until the context is cancelled and every update in flight has
// been handled, so the store can be closed once it returns.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
	h.waitHandlers()
}

func (h *Handler) waitHandlers() {
	h.inflight.Wait()
	h.log.Debug("All in-flight updates handled")
}

type requestIDKey struct{}

// requestIDMiddleware tags every update with an ID that shows up in all its
// log lines, and tracks the update until its handler returns.
func (h *Handler) requestIDMiddleware(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		h.inflight.Add(1)
		defer h.inflight.Done()
		next(context.WithValue(ctx, requestIDKey{}, uuid.NewString()), b, update)
	}
}

// logFor returns a logger carrying the request and user of update.
func (h *Handler) logFor(ctx context.Context, update *models.Update) logrus.FieldLogger {
	fields := logrus.Fields{}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		fields["request_id"] = id
	}
	if update.Message != nil && update.Message.From != nil {
		fields["user_id"] = update.Message.From.ID
	}
	return h.log.WithFields(fields)
}

// incoming returns the message and its sender, or ok=false for updates
// the bot ignores (edits, channel posts, service messages).
func incoming(update *models.Update) (msg *models.Message, user domain.UserID, ok bool) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return nil, 0, false
	}
	return update.Message, domain.UserID(update.Message.From.ID), true
}

// commandArgs returns the text after the leading /command token.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexFunc(text, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return ""
}

func (h *Handler) reply(ctx context.Context, log logrus.FieldLogger, chatID int64, text string) *models.Message {
	msg, err := h.sender.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: tgbot.True()},
	})
	if err != nil {
		log.WithError(err).Error("Failed to send message")
		return nil
	}
	return msg
}

// defaultHandler treats any non-command text as a YouTube URL request.
func (h *Handler) defaultHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, user, ok := incoming(update)
	if !ok || msg.Text == "" {
		return
	}
	log := h.logFor(ctx, update)
	chatID := msg.Chat.ID

	if strings.HasPrefix(msg.Text, "/") {
		h.reply(ctx, log, chatID, "Unknown command. Use /help to see what I can do.")
		return
	}
	if _, found := youtube.FindVideoID(msg.Text); !found {
		log.Debug("Message has no YouTube URL")
		h.reply(ctx, log, chatID, invalidURLText)
		return
	}

	progress := h.reply(ctx, log, chatID, "🔄 Processing YouTube video...")

	out, err := h.processor.Process(ctx, user, msg.Text)
	log = log.WithField("video_id", out.VideoID)

	var chunks []string
	if err != nil {
		if isUnexpected(err) {
			log.WithError(err).Error("Error processing YouTube URL")
		} else {
			log.WithError(err).Info("Request finished without links")
		}
		chunks = []string{errorText(err, out)}
	} else {
		chunks = formatOutcome(out, h.cfg.MaxLinks)
	}

	first := chunks[0]
	if progress != nil {
		_, editErr := h.sender.EditMessageText(ctx, &tgbot.EditMessageTextParams{
			ChatID:             chatID,
			MessageID:          progress.ID,
			Text:               first,
			LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: tgbot.True()},
		})
		if editErr != nil {
			log.WithError(editErr).Warn("Failed to edit progress message, sending a new one")
			h.reply(ctx, log, chatID, first)
		}
	} else {
		h.reply(ctx, log, chatID, first)
	}
	for _, chunk := range chunks[1:] {
		h.reply(ctx, log, chatID, chunk)
	}
}
