package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"flickfusion-tg-bot/internal/catalog"
)

// Caps disambiguation lists and search output to a keyboard Telegram will
// accept without truncation.
const maxChoices = 10

func confirmAddKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", "add:confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "add:cancel"),
		),
	)
}

func confirmBroadcastKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Send", "bc:confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "bc:cancel"),
		),
	)
}

// disambiguationKeyboard offers one button per candidate; tapping relays
// that record by id.
func disambiguationKeyboard(matches []catalog.Match) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, maxChoices)
	for i, m := range matches {
		if i >= maxChoices {
			break
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(m.Display(), fmt.Sprintf("get:%d", m.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// listNavKeyboard builds prev/next buttons for the catalog list. The second
// return is false when a single page needs no keyboard at all.
func listNavKeyboard(page, totalPages int) (tgbotapi.InlineKeyboardMarkup, bool) {
	if totalPages <= 1 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	nav := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	if page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("<<<", fmt.Sprintf("list:%d", page-1)))
	}
	if page < totalPages {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(">>>", fmt.Sprintf("list:%d", page+1)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(nav...)), true
}
