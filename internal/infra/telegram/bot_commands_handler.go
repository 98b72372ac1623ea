// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(ctx context.Context, b *telebot.Bot, replies *Replies, baseLogger *logrus.Entry) {
	commandLogger := baseLogger.WithField("handler_group", "commands")

	b.Handle("/start", func(c telebot.Context) error {
		commandLogger.WithFields(logrus.Fields{"command": "/start", "chat_id": c.Chat().ID}).Info("Processing command")
		return c.Send(replies.Start(ctx, c.Chat().ID))
	})

	b.Handle("/help", func(c telebot.Context) error {
		commandLogger.WithFields(logrus.Fields{"command": "/help", "chat_id": c.Chat().ID}).Info("Processing command")
		return c.Send(replies.Help(ctx, c.Chat().ID))
	})

	b.Handle("/due", func(c telebot.Context) error {
		commandLogger.WithFields(logrus.Fields{"command": "/due", "chat_id": c.Chat().ID}).Info("Processing command")
		text, markup := replies.Due(ctx, c.Chat().ID)
		if markup == nil {
			return c.Send(text)
		}
		return c.Send(text, markup)
	})
}
