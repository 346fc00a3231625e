package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"flickfusion-tg-bot/internal/catalog"
	"flickfusion-tg-bot/internal/storage"
)

func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		if msg.Command() == "cancel" {
			return
		}
		b.send(msg.Chat.ID, "Sorry, only admins can use this command.")
		return
	}
	switch msg.Command() {
	case "addmovie":
		b.startAddMovie(msg)
	case "listmovies":
		page := 1
		if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
			if n, err := strconv.Atoi(arg); err == nil {
				page = n
			}
		}
		b.sendMovieList(ctx, msg.Chat.ID, page, 0)
	case "deletemovie":
		b.deleteMovie(ctx, msg)
	case "stats":
		b.sendStats(ctx, msg.Chat.ID)
	case "broadcast":
		b.startBroadcast(msg)
	case "cancel":
		b.cancelSession(msg)
	}
}

// startAddMovie opens an add session. With arguments the title step is
// skipped. The multi-step flow lives in the admin's private chat so the
// session stays on a single event lane.
func (b *Bot) startAddMovie(msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		b.send(msg.Chat.ID, "Let's do this in private — message me directly and run /addmovie there.")
		return
	}
	args := strings.TrimSpace(msg.CommandArguments())
	if args != "" {
		title, year := catalog.ParseQuery(args)
		if title == "" {
			b.send(msg.Chat.ID, "Title cannot be empty. Try /addmovie The Matrix (1999).")
			return
		}
		s := b.sessions.start(msg.From.ID, stateAwaitingReference)
		s.title, s.year = title, year
		b.send(msg.Chat.ID, fmt.Sprintf("Adding %s.\n\nNow forward the movie message from the source channel.\nUse /cancel to abort.",
			displayTitle(title, year)))
		return
	}
	b.sessions.start(msg.From.ID, stateAwaitingTitle)
	b.send(msg.Chat.ID, "Send the movie title, optionally with a year.\nExample: The Matrix (1999)\n\nUse /cancel to abort.")
}

// handleSessionInput advances the admin's conversation one step. The whole
// transition runs under the session lock.
func (b *Bot) handleSessionInput(ctx context.Context, msg *tgbotapi.Message) {
	s := b.sessions.get(msg.From.ID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	switch s.state {
	case stateAwaitingTitle:
		title, year := catalog.ParseQuery(msg.Text)
		if title == "" {
			b.send(msg.Chat.ID, "Title cannot be empty. Send the movie title, or /cancel.")
			return
		}
		s.title, s.year = title, year
		s.state = stateAwaitingReference
		b.send(msg.Chat.ID, fmt.Sprintf("Adding %s.\n\nNow forward the movie message from the source channel.",
			displayTitle(title, year)))

	case stateAwaitingReference:
		if msg.ForwardFromChat == nil || msg.ForwardFromMessageID == 0 {
			b.send(msg.Chat.ID, "That is not a forwarded message. Forward the movie message from the source channel, or /cancel.")
			return
		}
		if msg.ForwardFromChat.ID != b.cfg.ChannelID {
			b.send(msg.Chat.ID, "That message is not from the source channel. Forward the right one, or /cancel.")
			return
		}
		s.source = catalog.SourceRef{ChatID: msg.ForwardFromChat.ID, MessageID: msg.ForwardFromMessageID}
		s.state = stateAwaitingConfirmation
		preview := fmt.Sprintf("Ready to add %s.\nSource message: %d\n\nIs this correct?",
			displayTitle(s.title, s.year), s.source.MessageID)
		if err := b.api.SendMarkup(msg.Chat.ID, preview, confirmAddKeyboard()); err != nil {
			b.log.Error().Err(err).Msg("send failed")
		}

	case stateAwaitingConfirmation:
		b.send(msg.Chat.ID, "Use the buttons to confirm or cancel, or send /cancel.")

	case stateAwaitingBroadcastText:
		b.broadcastTextReceived(s, msg)

	case stateAwaitingBroadcastConfirm:
		b.send(msg.Chat.ID, "Use the buttons to confirm or cancel, or send /cancel.")
	}
}

// handleAddDecision finishes an add session from the confirm keyboard.
func (b *Bot) handleAddDecision(ctx context.Context, cq *tgbotapi.CallbackQuery, confirmed bool) {
	adminID := cq.From.ID
	chatID := cq.Message.Chat.ID
	if !b.cfg.IsAdmin(adminID) {
		return
	}
	s := b.sessions.get(adminID)
	if s == nil {
		b.editText(chatID, cq.Message.MessageID, "This session has expired. Start again with /addmovie.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateAwaitingConfirmation {
		return
	}

	if !confirmed {
		b.sessions.clear(adminID)
		b.editText(chatID, cq.Message.MessageID, "Movie addition cancelled.")
		return
	}

	if s.source.IsZero() {
		b.sessions.clear(adminID)
		b.editText(chatID, cq.Message.MessageID, "This session lost its source message. Start again with /addmovie.")
		return
	}

	rec, err := b.store.CreateMovie(ctx, catalog.MovieRecord{
		Title:   s.title,
		Year:    s.year,
		Source:  s.source,
		AddedBy: adminID,
	})
	if err != nil {
		b.log.Error().Err(err).Msg("movie create failed")
		b.sessions.clear(adminID)
		b.editText(chatID, cq.Message.MessageID, "Could not save the movie — nothing was added. Please try /addmovie again.")
		return
	}
	b.sessions.clear(adminID)
	b.editText(chatID, cq.Message.MessageID, fmt.Sprintf("✅ %s has been added with ID %d.", rec.Display(), rec.ID))
}

func (b *Bot) deleteMovie(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		b.send(msg.Chat.ID, "Usage: /deletemovie <id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		b.send(msg.Chat.ID, "Usage: /deletemovie <id>")
		return
	}

	rec, err := b.store.MovieByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.send(msg.Chat.ID, fmt.Sprintf("No movie found with ID %d.", id))
		return
	}
	if err != nil {
		b.log.Error().Err(err).Int64("movie_id", id).Msg("movie lookup failed")
		b.send(msg.Chat.ID, "Something went wrong. Nothing was deleted.")
		return
	}
	if err := b.store.DeleteMovie(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.send(msg.Chat.ID, fmt.Sprintf("No movie found with ID %d.", id))
			return
		}
		b.log.Error().Err(err).Int64("movie_id", id).Msg("movie delete failed")
		b.send(msg.Chat.ID, "Something went wrong. Nothing was deleted.")
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("Movie %s has been deleted.", rec.Display()))
}

// sendMovieList renders one catalog page. With editMessageID set it edits
// in place, which is how the prev/next buttons page through the catalog.
func (b *Bot) sendMovieList(ctx context.Context, chatID int64, page, editMessageID int) {
	records, err := b.store.All(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("catalog scan failed")
		b.send(chatID, "Could not load the catalog. Please try again later.")
		return
	}
	if len(records) == 0 {
		b.send(chatID, "No movies in the database yet.")
		return
	}

	size := b.cfg.ListPageSize
	totalPages := (len(records) + size - 1) / size
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * size
	end := start + size
	if end > len(records) {
		end = len(records)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎬 Movie catalog — page %d/%d\n\n", page, totalPages)
	for _, rec := range records[start:end] {
		fmt.Fprintf(&sb, "%d. %s\n", rec.ID, rec.Display())
	}
	text := strings.TrimRight(sb.String(), "\n")

	markup, hasNav := listNavKeyboard(page, totalPages)
	switch {
	case editMessageID > 0 && hasNav:
		if err := b.api.EditTextAndMarkup(chatID, editMessageID, text, markup); err != nil {
			b.log.Error().Err(err).Msg("edit failed")
		}
	case editMessageID > 0:
		b.editText(chatID, editMessageID, text)
	case hasNav:
		if err := b.api.SendMarkup(chatID, text, markup); err != nil {
			b.log.Error().Err(err).Msg("send failed")
		}
	default:
		b.send(chatID, text)
	}
}

func (b *Bot) handleListCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, rawPage string) {
	if !b.cfg.IsAdmin(cq.From.ID) {
		return
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		return
	}
	b.sendMovieList(ctx, cq.Message.Chat.ID, page, cq.Message.MessageID)
}

func (b *Bot) sendStats(ctx context.Context, chatID int64) {
	st, err := b.store.Stats(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("stats query failed")
		b.send(chatID, "Could not load stats. Please try again later.")
		return
	}
	b.send(chatID, fmt.Sprintf("📊 Stats\n\nMovies: %d\nKnown users: %d\nRequests served: %d",
		st.Movies, st.Users, st.Requests))
}

func (b *Bot) cancelSession(msg *tgbotapi.Message) {
	if b.sessions.get(msg.From.ID) == nil {
		b.send(msg.Chat.ID, "Nothing to cancel.")
		return
	}
	b.sessions.clear(msg.From.ID)
	b.send(msg.Chat.ID, "Operation cancelled.")
}

func displayTitle(title string, year int) string {
	if year > 0 {
		return fmt.Sprintf("%s (%d)", title, year)
	}
	return title
}
