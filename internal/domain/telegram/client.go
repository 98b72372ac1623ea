package telegram

import "gopkg.in/telebot.v3"

// Client delivers digests and replies to a chat. A nil Client disables delivery.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
