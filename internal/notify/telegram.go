package notify

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// Telegram delivers messages through a telebot instance.
type Telegram struct {
	bot *tele.Bot
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(bot *tele.Bot) *Telegram {
	return &Telegram{bot: bot}
}

// Markup converts a keyboard into telebot's inline markup.
func Markup(keyboard [][]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	if len(keyboard) == 0 {
		return markup
	}
	rows := make([][]tele.InlineButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tele.InlineButton{Text: b.Text, Data: b.Data, URL: b.URL})
		}
		rows = append(rows, buttons)
	}
	markup.InlineKeyboard = rows
	return markup
}

// SendOptions returns the options used for every outbound message.
func SendOptions(msg Message) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		ReplyMarkup:           Markup(msg.Keyboard),
		DisableWebPagePreview: true,
	}
}

// Send posts msg to chatID.
func (t *Telegram) Send(_ context.Context, chatID int64, msg Message) (int, error) {
	sent, err := t.bot.Send(&tele.Chat{ID: chatID}, msg.Text, SendOptions(msg))
	if err != nil {
		return 0, fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return sent.ID, nil
}

// Delete removes a message.
func (t *Telegram) Delete(_ context.Context, chatID int64, messageID int) error {
	return t.bot.Delete(&tele.Message{ID: messageID, Chat: &tele.Chat{ID: chatID}})
}

// Pin pins a message without notifying members.
func (t *Telegram) Pin(_ context.Context, chatID int64, messageID int) error {
	return t.bot.Pin(&tele.Message{ID: messageID, Chat: &tele.Chat{ID: chatID}}, tele.Silent)
}
