package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"flickfusion-tg-bot/internal/catalog"
	"flickfusion-tg-bot/internal/config"
	"flickfusion-tg-bot/internal/storage"
)

const welcomeText = "🎬 Welcome to FlickFusion! 🍿\n\n" +
	"Drop a movie request in the group, like /get Inception (2010), and I'll deliver it.\n" +
	"Type /help to see everything I can do."

const helpText = "🎬 FlickFusion commands\n\n" +
	"For everyone:\n" +
	"/search <title> [year] — find movies by title\n" +
	"/get <title> [year] — get a movie\n" +
	"/get — get a random movie\n" +
	"Or just type a movie title in the group.\n\n" +
	"For admins:\n" +
	"/addmovie [title] — add a movie\n" +
	"/listmovies [page] — list the catalog\n" +
	"/deletemovie <id> — remove a movie\n" +
	"/broadcast — message all known users\n" +
	"/stats — catalog stats\n" +
	"/cancel — abort the current operation\n\n" +
	"Tip: include the year for the best match, e.g. /get Dune 2021."

type Bot struct {
	api      API
	store    storage.Store
	matcher  *catalog.Matcher
	cfg      config.Config
	sessions *sessionRegistry
	laneIdle time.Duration
	log      zerolog.Logger
}

func New(api API, store storage.Store, cfg config.Config, log zerolog.Logger) *Bot {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 10 * time.Minute
	}
	if cfg.ListPageSize <= 0 {
		cfg.ListPageSize = 20
	}
	return &Bot{
		api:      api,
		store:    store,
		matcher:  catalog.NewMatcher(store),
		cfg:      cfg,
		sessions: newSessionRegistry(cfg.SessionTimeout),
		laneIdle: 5 * time.Minute,
		log:      log,
	}
}

// Run consumes the update stream until it closes or ctx is done. Updates
// are fanned out to one ordered lane per chat, so handling within a chat
// never interleaves while separate chats proceed concurrently. Lanes idle
// beyond laneIdle are retired and recreated on demand, so a one-off chat
// never costs a goroutine for the rest of the process lifetime.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	go b.sessions.run(ctx)

	lanes := make(map[int64]chan tgbotapi.Update)
	idle := make(chan int64)
	var wg sync.WaitGroup
	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case chatID := <-idle:
			if lane, ok := lanes[chatID]; ok {
				delete(lanes, chatID)
				close(lane)
			}
		case upd, ok := <-updates:
			if !ok {
				return
			}
			chatID := laneKey(upd)
			lane, ok := lanes[chatID]
			if !ok {
				lane = make(chan tgbotapi.Update, 32)
				lanes[chatID] = lane
				wg.Add(1)
				go func() {
					defer wg.Done()
					b.runLane(chatID, lane, idle)
				}()
			}
			select {
			case lane <- upd:
			default:
				b.log.Warn().Int64("chat_id", chatID).Msg("chat lane full, dropping update")
			}
		}
	}
}

// runLane drains one chat's lane in order. After an idle period it asks the
// dispatcher to retire it, then keeps serving anything still buffered until
// the dispatcher closes the channel, so no update is ever lost to the race
// between retirement and a late send.
func (b *Bot) runLane(chatID int64, lane chan tgbotapi.Update, idle chan<- int64) {
	timer := time.NewTimer(b.laneIdle)
	defer timer.Stop()
	for {
		select {
		case u, ok := <-lane:
			if !ok {
				return
			}
			b.handleUpdate(u)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(b.laneIdle)
		case <-timer.C:
			select {
			case idle <- chatID:
			case u, ok := <-lane:
				if !ok {
					return
				}
				b.handleUpdate(u)
				timer.Reset(b.laneIdle)
				continue
			}
			for u := range lane {
				b.handleUpdate(u)
			}
			return
		}
	}
}

func laneKey(upd tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func (b *Bot) handleUpdate(upd tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.RequestTimeout)
	defer cancel()
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	// Mid-session admin input (title text or the forwarded reference).
	// Sessions live in the admin's private chat only, so group chatter from
	// an admin is never swallowed by an open session.
	if msg.Chat.IsPrivate() && b.cfg.IsAdmin(msg.From.ID) && b.sessions.get(msg.From.ID) != nil {
		b.handleSessionInput(ctx, msg)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	b.handleMovieRequest(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		if msg.Chat.IsPrivate() || b.cfg.IsAuthorizedChat(msg.Chat.ID) {
			b.send(msg.Chat.ID, helpText)
		}
	case "search":
		b.handleSearch(ctx, msg)
	case "get":
		b.handleMovieRequest(ctx, msg.Chat.ID, msg.From.ID, msg.CommandArguments())
	case "addmovie", "listmovies", "deletemovie", "stats", "broadcast", "cancel":
		b.handleAdminCommand(ctx, msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		if err := b.store.UpsertUser(ctx, msg.From.ID); err != nil {
			b.log.Warn().Err(err).Int64("user_id", msg.From.ID).Msg("user upsert failed")
		}
		b.send(msg.Chat.ID, welcomeText)
		return
	}
	if b.cfg.IsAuthorizedChat(msg.Chat.ID) {
		b.send(msg.Chat.ID, welcomeText)
	}
}

func (b *Bot) send(chatID int64, text string) {
	if err := b.api.SendText(chatID, text); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}
