package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tubelinks/internal/domain"
)

const storeErrorText = "⚠️ Couldn't update your filters. Please try again."

func (h *Handler) helpHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, _, ok := incoming(update)
	if !ok {
		return
	}
	log := h.logFor(ctx, update)
	log.Info("Received help command")
	h.reply(ctx, log, msg.Chat.ID, helpText)
}

// filterHandler shows the filters, or replaces them when words are given.
func (h *Handler) filterHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, user, ok := incoming(update)
	if !ok {
		return
	}
	log := h.logFor(ctx, update).WithField("command", "/filter")

	words := strings.Fields(commandArgs(msg.Text))
	if len(words) == 0 {
		h.sendStatus(ctx, log, msg.Chat.ID, user)
		return
	}
	if err := h.store.ReplaceFilters(ctx, user, words); err != nil {
		log.WithError(err).Error("Failed to replace filters")
		h.reply(ctx, log, msg.Chat.ID, storeErrorText)
		return
	}
	log.WithField("count", len(words)).Info("Filters replaced")

	set, err := h.store.GetFilters(ctx, user)
	if err != nil {
		log.WithError(err).Error("Failed to load filters")
		h.reply(ctx, log, msg.Chat.ID, storeErrorText)
		return
	}
	h.reply(ctx, log, msg.Chat.ID, "✅ Filter updated!\n\n"+filterStatus(set))
}

func (h *Handler) addFilterHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, user, ok := incoming(update)
	if !ok {
		return
	}
	log := h.logFor(ctx, update).WithField("command", "/addfilter")

	word := commandArgs(msg.Text)
	if word == "" {
		h.reply(ctx, log, msg.Chat.ID, "❌ Please provide a keyword to filter.\n\nUsage: /addfilter keyword")
		return
	}
	// A link never contains whitespace, so such a word could never match.
	if strings.ContainsFunc(word, unicode.IsSpace) {
		h.reply(ctx, log, msg.Chat.ID, "❌ A keyword can't contain spaces.\n\nUsage: /addfilter keyword\nTo set several at once: /filter word1 word2")
		return
	}
	added, err := h.store.AddFilter(ctx, user, word)
	if err != nil {
		log.WithError(err).Error("Failed to add filter")
		h.reply(ctx, log, msg.Chat.ID, storeErrorText)
		return
	}
	if !added {
		h.reply(ctx, log, msg.Chat.ID, fmt.Sprintf("ℹ️ %q is already in your filter list.", word))
		return
	}
	log.WithField("word", word).Info("Filter added")
	h.reply(ctx, log, msg.Chat.ID, fmt.Sprintf("✅ Added %q to your filter list.\nLinks containing this keyword will be excluded.", word))
}

func (h *Handler) removeFilterHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, user, ok := incoming(update)
	if !ok {
		return
	}
	log := h.logFor(ctx, update).WithField("command", "/removefilter")

	word := commandArgs(msg.Text)
	if word == "" {
		h.reply(ctx, log, msg.Chat.ID, "❌ Please provide a keyword to remove.\n\nUsage: /removefilter keyword")
		return
	}
	removed, err := h.store.RemoveFilter(ctx, user, word)
	if err != nil {
		log.WithError(err).Error("Failed to remove filter")
		h.reply(ctx, log, msg.Chat.ID, storeErrorText)
		return
	}
	if !removed {
		h.reply(ctx, log, msg.Chat.ID, fmt.Sprintf("ℹ️ %q was not found in your filter list.", word))
		return
	}
	log.WithField("word", word).Info("Filter removed")
	h.reply(ctx, log, msg.Chat.ID, fmt.Sprintf("✅ Removed %q from your filter list.", word))
}

func (h *Handler) showFilterHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, user, ok := incoming(update)
	if !ok {
		return
	}
	h.sendStatus(ctx, h.logFor(ctx, update).WithField("command", "/showfilter"), msg.Chat.ID, user)
}

func (h *Handler) clearFilterHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, user, ok := incoming(update)
	if !ok {
		return
	}
	log := h.logFor(ctx, update).WithField("command", "/clearfilter")

	if err := h.store.ReplaceFilters(ctx, user, nil); err != nil {
		log.WithError(err).Error("Failed to clear filters")
		h.reply(ctx, log, msg.Chat.ID, storeErrorText)
		return
	}
	log.Info("Filters cleared")
	h.reply(ctx, log, msg.Chat.ID, "✅ All filters cleared!\nAll HTTPS links will now be shown.")
}

func (h *Handler) resetFiltersHandler(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, user, ok := incoming(update)
	if !ok {
		return
	}
	log := h.logFor(ctx, update).WithField("command", "/resetfilters")

	if err := h.store.ResetFilters(ctx, user); err != nil {
		log.WithError(err).Error("Failed to reset filters")
		h.reply(ctx, log, msg.Chat.ID, storeErrorText)
		return
	}
	log.Info("Filters reset to defaults")

	set, err := h.store.GetFilters(ctx, user)
	if err != nil {
		log.WithError(err).Error("Failed to load filters")
		h.reply(ctx, log, msg.Chat.ID, storeErrorText)
		return
	}
	h.reply(ctx, log, msg.Chat.ID, "✅ Filters reset to defaults.\n\n"+filterStatus(set))
}

func (h *Handler) sendStatus(ctx context.Context, log logrus.FieldLogger, chatID int64, user domain.UserID) {
	set, err := h.store.GetFilters(ctx, user)
	if err != nil {
		log.WithError(err).Error("Failed to load filters")
		h.reply(ctx, log, chatID, storeErrorText)
		return
	}
	h.reply(ctx, log, chatID, filterStatus(set))
}

// isUnexpected reports whether err falls outside the pipeline's expected outcomes.
func isUnexpected(err error) bool {
	for _, expected := range []error{
		domain.ErrInvalidURL,
		domain.ErrNotFound,
		domain.ErrTransient,
		domain.ErrNoLinks,
		domain.ErrEmptyResult,
	} {
		if errors.Is(err, expected) {
			return false
		}
	}
	return true
}
