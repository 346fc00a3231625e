package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"flickfusion-tg-bot/internal/catalog"
	"flickfusion-tg-bot/internal/storage"
)

// RelayOutcome reports how a movie request ended.
type RelayOutcome int

const (
	OutcomeRelayed RelayOutcome = iota
	OutcomeNotFound
	OutcomeAmbiguous
	OutcomeRelayFailed
	OutcomeLookupFailed
	OutcomeUnauthorized
)

// authorized reports whether requests from this chat are served. Admins may
// also use the bot in their private chat with it.
func (b *Bot) authorized(chatID, userID int64) bool {
	if b.cfg.IsAuthorizedChat(chatID) {
		return true
	}
	return chatID == userID && b.cfg.IsAdmin(userID)
}

// handleMovieRequest is the full user request path: match, then relay the
// winner's stored channel message, or explain why not.
func (b *Bot) handleMovieRequest(ctx context.Context, chatID, userID int64, query string) RelayOutcome {
	if !b.authorized(chatID, userID) {
		b.log.Debug().Int64("chat_id", chatID).Msg("ignoring request from unauthorized chat")
		return OutcomeUnauthorized
	}

	matches, err := b.matcher.Find(ctx, query)
	if err != nil {
		b.log.Error().Err(err).Msg("catalog lookup failed")
		b.send(chatID, "Something went wrong looking that up. Please try again later.")
		return OutcomeLookupFailed
	}

	if len(matches) == 0 {
		if strings.TrimSpace(query) == "" {
			b.send(chatID, "No movies in the catalog yet.")
		} else {
			title, year := catalog.ParseQuery(query)
			b.send(chatID, fmt.Sprintf("Sorry, I couldn't find %q%s. Please check the title or try another movie.",
				title, yearSuffix(year)))
		}
		return OutcomeNotFound
	}

	exact := 0
	for _, m := range matches {
		if m.Tier == catalog.TierExact {
			exact++
		}
	}
	if exact > b.cfg.AmbiguityThreshold {
		if err := b.api.SendMarkup(chatID, "I found several matches. Pick one:", disambiguationKeyboard(matches)); err != nil {
			b.log.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
		}
		return OutcomeAmbiguous
	}

	return b.relay(ctx, chatID, userID, matches[0].MovieRecord)
}

func (b *Bot) relay(ctx context.Context, chatID, userID int64, rec catalog.MovieRecord) RelayOutcome {
	if err := b.api.Forward(chatID, rec.Source.ChatID, rec.Source.MessageID); err != nil {
		b.log.Error().Err(err).Int64("movie_id", rec.ID).Int64("chat_id", chatID).Msg("relay failed")
		b.send(chatID, fmt.Sprintf("%s is temporarily unavailable. Please try again later.", rec.Display()))
		return OutcomeRelayFailed
	}
	if err := b.store.LogRequest(ctx, userID, rec.ID, chatID); err != nil {
		b.log.Warn().Err(err).Int64("movie_id", rec.ID).Msg("request log write failed")
	}
	return OutcomeRelayed
}

func (b *Bot) handleSearch(ctx context.Context, msg *tgbotapi.Message) {
	if !b.authorized(msg.Chat.ID, msg.From.ID) {
		b.log.Debug().Int64("chat_id", msg.Chat.ID).Msg("ignoring search from unauthorized chat")
		return
	}
	query := strings.TrimSpace(msg.CommandArguments())
	if query == "" {
		b.send(msg.Chat.ID, "Please provide a search term: /search movie title")
		return
	}

	matches, err := b.matcher.Find(ctx, query)
	if err != nil {
		b.log.Error().Err(err).Msg("catalog lookup failed")
		b.send(msg.Chat.ID, "Something went wrong looking that up. Please try again later.")
		return
	}
	if len(matches) == 0 {
		b.send(msg.Chat.ID, fmt.Sprintf("No movies found matching %q.", query))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎬 Search results for %q\n\n", query)
	for i, m := range matches {
		if i >= maxChoices {
			break
		}
		fmt.Fprintf(&sb, "• %s\n", m.Display())
	}
	b.send(msg.Chat.ID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil {
		return
	}
	data := strings.TrimSpace(cq.Data)
	switch {
	case strings.HasPrefix(data, "get:"):
		b.handleGetCallback(ctx, cq, strings.TrimPrefix(data, "get:"))
	case data == "add:confirm" || data == "add:cancel":
		b.handleAddDecision(ctx, cq, data == "add:confirm")
	case data == "bc:confirm" || data == "bc:cancel":
		b.handleBroadcastDecision(ctx, cq, data == "bc:confirm")
	case strings.HasPrefix(data, "list:"):
		b.handleListCallback(ctx, cq, strings.TrimPrefix(data, "list:"))
	}
	if err := b.api.AnswerCallback(cq.ID, ""); err != nil {
		b.log.Debug().Err(err).Msg("answer callback failed")
	}
}

// handleGetCallback relays a specific record picked from a disambiguation
// keyboard.
func (b *Bot) handleGetCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, rawID string) {
	chatID := cq.Message.Chat.ID
	if !b.authorized(chatID, cq.From.ID) {
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return
	}
	rec, err := b.store.MovieByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.editText(chatID, cq.Message.MessageID, "Sorry, this movie is no longer available.")
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int64("movie_id", id).Msg("movie lookup failed")
		b.editText(chatID, cq.Message.MessageID, "Something went wrong. Please try again later.")
		return
	}
	b.editText(chatID, cq.Message.MessageID, fmt.Sprintf("Sending %s…", rec.Display()))
	b.relay(ctx, chatID, cq.From.ID, rec)
}

func (b *Bot) editText(chatID int64, messageID int, text string) {
	if err := b.api.EditText(chatID, messageID, text); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("edit failed")
	}
}

func yearSuffix(year int) string {
	if year > 0 {
		return fmt.Sprintf(" (%d)", year)
	}
	return ""
}
