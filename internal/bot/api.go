package bot

import (
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the slice of the Telegram surface the handlers use. Tests swap in
// a fake; production uses Telegram below.
type API interface {
	SendText(chatID int64, text string) error
	SendMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error
	EditText(chatID int64, messageID int, text string) error
	EditTextAndMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error
	Forward(toChatID, fromChatID int64, messageID int) error
	AnswerCallback(callbackID, text string) error
}

// Telegram wraps the bot API client. The HTTP client carries the bound
// timeout, so no transport call can hang an event lane.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

func NewTelegram(token string, timeout time.Duration) (*Telegram, error) {
	client := &http.Client{Timeout: timeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: api}, nil
}

// Updates starts long polling and returns the update stream.
func (t *Telegram) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return t.bot.GetUpdatesChan(u)
}

// Stop ends long polling; the Updates channel closes afterwards.
func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
}

func (t *Telegram) Username() string {
	return t.bot.Self.UserName
}

func (t *Telegram) SendText(chatID int64, text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (t *Telegram) SendMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	_, err := t.bot.Send(msg)
	return err
}

func (t *Telegram) EditText(chatID int64, messageID int, text string) error {
	_, err := t.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (t *Telegram) EditTextAndMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	_, err := t.bot.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
	return err
}

func (t *Telegram) Forward(toChatID, fromChatID int64, messageID int) error {
	_, err := t.bot.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID))
	return err
}

func (t *Telegram) AnswerCallback(callbackID, text string) error {
	_, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}
