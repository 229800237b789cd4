package telegram

import (
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the notify.Client interface using the
// gopkg.in/telebot.v3 library. It is used for out-of-band operator messages
// (run summaries, infrastructure failures), not for any user-facing flow.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string) error {
	recipient := &telebot.User{ID: recipientChatID}
	_, err := tba.bot.Send(recipient, text, &telebot.SendOptions{})
	return err
}
