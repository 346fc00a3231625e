package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"flickfusion-tg-bot/internal/catalog"
	"flickfusion-tg-bot/internal/config"
	"flickfusion-tg-bot/internal/storage"
)

const (
	testChannelID = int64(-100500)
	testGroupID   = int64(-200)
	adminAlice    = int64(1)
	adminBob      = int64(2)
	plainUser     = int64(9)
)

type sentMsg struct {
	chatID int64
	text   string
	markup *tgbotapi.InlineKeyboardMarkup
}

type forwardCall struct {
	to, from  int64
	messageID int
}

type fakeAPI struct {
	mu          sync.Mutex
	sent        []sentMsg
	edits       []sentMsg
	forwards    []forwardCall
	failForward bool
}

func (f *fakeAPI) SendText(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{chatID: chatID, text: text})
	return nil
}

func (f *fakeAPI) SendMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := markup
	f.sent = append(f.sent, sentMsg{chatID: chatID, text: text, markup: &m})
	return nil
}

func (f *fakeAPI) EditText(chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentMsg{chatID: chatID, text: text})
	return nil
}

func (f *fakeAPI) EditTextAndMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := markup
	f.edits = append(f.edits, sentMsg{chatID: chatID, text: text, markup: &m})
	return nil
}

func (f *fakeAPI) Forward(toChatID, fromChatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failForward {
		return errors.New("forward failed")
	}
	f.forwards = append(f.forwards, forwardCall{to: toChatID, from: fromChatID, messageID: messageID})
	return nil
}

func (f *fakeAPI) AnswerCallback(string, string) error { return nil }

func (f *fakeAPI) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

func (f *fakeAPI) lastEdit() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return ""
	}
	return f.edits[len(f.edits)-1].text
}

func (f *fakeAPI) textsTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *storage.Memory) {
	t.Helper()
	api := &fakeAPI{}
	store := storage.NewMemory()
	cfg := config.Config{
		ChannelID:          testChannelID,
		AdminIDs:           []int64{adminAlice, adminBob},
		AuthGroups:         []int64{testGroupID},
		RequestTimeout:     time.Second,
		SessionTimeout:     time.Minute,
		ListPageSize:       20,
		AmbiguityThreshold: 1,
	}
	return New(api, store, cfg, zerolog.Nop()), api, store
}

func msgIn(chatID, userID int64, chatType, text string) *tgbotapi.Message {
	m := &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType},
		From:      &tgbotapi.User{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return m
}

func privateMsg(userID int64, text string) *tgbotapi.Message {
	return msgIn(userID, userID, "private", text)
}

func groupMsg(userID int64, text string) *tgbotapi.Message {
	return msgIn(testGroupID, userID, "supergroup", text)
}

func forwardedMsg(userID, fromChatID int64, messageID int) *tgbotapi.Message {
	m := privateMsg(userID, "")
	m.ForwardFromChat = &tgbotapi.Chat{ID: fromChatID, Type: "channel"}
	m.ForwardFromMessageID = messageID
	return m
}

func callback(userID, chatID int64, data string) *tgbotapi.CallbackQuery {
	chatType := "supergroup"
	if chatID == userID {
		chatType = "private"
	}
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 50, Chat: &tgbotapi.Chat{ID: chatID, Type: chatType}},
	}
}

func seedMovie(t *testing.T, store *storage.Memory, title string, year, messageID int) catalog.MovieRecord {
	t.Helper()
	rec, err := store.CreateMovie(context.Background(), catalog.MovieRecord{
		Title:   title,
		Year:    year,
		Source:  catalog.SourceRef{ChatID: testChannelID, MessageID: messageID},
		AddedBy: adminAlice,
	})
	require.NoError(t, err)
	return rec
}
