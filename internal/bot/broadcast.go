package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// startBroadcast opens a broadcast session: prompt for text, preview,
// explicit confirm, then fan out to every known user.
func (b *Bot) startBroadcast(msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		b.send(msg.Chat.ID, "Let's do this in private — message me directly and run /broadcast there.")
		return
	}
	b.sessions.start(msg.From.ID, stateAwaitingBroadcastText)
	b.send(msg.Chat.ID, "📣 Send the text you want to broadcast to all known users.\n\nUse /cancel to abort.")
}

// broadcastTextReceived runs under the session lock, from handleSessionInput.
func (b *Bot) broadcastTextReceived(s *session, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.send(msg.Chat.ID, "Broadcast text cannot be empty. Send the text, or /cancel.")
		return
	}
	s.broadcast = text
	s.state = stateAwaitingBroadcastConfirm
	preview := fmt.Sprintf("About to broadcast:\n\n%s\n\nSend it to every known user?", text)
	if err := b.api.SendMarkup(msg.Chat.ID, preview, confirmBroadcastKeyboard()); err != nil {
		b.log.Error().Err(err).Msg("send failed")
	}
}

func (b *Bot) handleBroadcastDecision(ctx context.Context, cq *tgbotapi.CallbackQuery, confirmed bool) {
	adminID := cq.From.ID
	chatID := cq.Message.Chat.ID
	if !b.cfg.IsAdmin(adminID) {
		return
	}
	s := b.sessions.get(adminID)
	if s == nil {
		b.editText(chatID, cq.Message.MessageID, "This session has expired. Start again with /broadcast.")
		return
	}
	s.mu.Lock()
	if s.state != stateAwaitingBroadcastConfirm {
		s.mu.Unlock()
		return
	}
	text := s.broadcast
	s.mu.Unlock()

	// The decision is made; the session lock must not be held across the
	// fan-out below, which can run for a long time on a large user base.
	b.sessions.clear(adminID)

	if !confirmed {
		b.editText(chatID, cq.Message.MessageID, "Broadcast cancelled.")
		return
	}

	ids, err := b.store.UserIDs(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("user list query failed")
		b.editText(chatID, cq.Message.MessageID, "Could not load the user list. Broadcast aborted.")
		return
	}

	b.editText(chatID, cq.Message.MessageID, fmt.Sprintf("Broadcasting to %d users…", len(ids)))

	sent, failed := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			b.log.Warn().Err(ctx.Err()).Int("sent", sent).Int("remaining", len(ids)-sent-failed).
				Msg("broadcast aborted")
			break
		}
		if err := b.api.SendText(id, text); err != nil {
			b.log.Debug().Err(err).Int64("user_id", id).Msg("broadcast delivery failed")
			failed++
			continue
		}
		sent++
		// Stay well under Telegram's messages-per-second ceiling.
		time.Sleep(50 * time.Millisecond)
	}
	b.log.Info().Int("sent", sent).Int("failed", failed).Msg("broadcast finished")
	b.send(chatID, fmt.Sprintf("Broadcast delivered to %d users (%d failed).", sent, failed))
}
