package telegram

import (
	"context"
	"fmt"

	"outreach_tracker/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterFollowUpHandlers wires the "Sent" and "Undo" inline buttons. The button payload is
// the follow-up id.
func RegisterFollowUpHandlers(ctx context.Context, b *telebot.Bot, replies *Replies, baseLogger *logrus.Entry) {
	callbackLogger := baseLogger.WithField("handler_group", "followup_buttons")

	b.Handle(&telebot.Btn{Unique: app.LogButtonUnique}, func(c telebot.Context) error {
		payload := c.Callback().Data
		text, markup, err := replies.Log(ctx, c.Chat().ID, payload)
		if err != nil {
			callbackLogger.WithError(err).WithField("followup_id", payload).Warn("Log button failed")
			return c.Respond(&telebot.CallbackResponse{Text: text})
		}
		if err := c.Respond(&telebot.CallbackResponse{Text: "Logged"}); err != nil {
			c.Bot().OnError(fmt.Errorf("error answering log callback: %w", err), c)
		}
		return c.Send(text, markup)
	})

	b.Handle(&telebot.Btn{Unique: app.UnlogButtonUnique}, func(c telebot.Context) error {
		payload := c.Callback().Data
		text, err := replies.Unlog(ctx, c.Chat().ID, payload)
		if err != nil {
			callbackLogger.WithError(err).WithField("followup_id", payload).Warn("Undo button failed")
			return c.Respond(&telebot.CallbackResponse{Text: text})
		}
		if err := c.Respond(&telebot.CallbackResponse{Text: "Undone"}); err != nil {
			c.Bot().OnError(fmt.Errorf("error answering undo callback: %w", err), c)
		}
		// Drop the undo button so it cannot be pressed twice.
		return c.Edit(text)
	})
}
