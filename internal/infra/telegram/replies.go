package telegram

import (
	"context"
	"errors"
	"fmt"

	"outreach_tracker/internal/app"
	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const helpText = "I send a daily list of the follow-ups that are due or overdue.\n\n" +
	"Tap \"Sent\" under an item once you have followed up; tap \"Undo\" if that was a mistake.\n\n" +
	"/due - show what needs attention today\n" +
	"/help - show this message"

// Replies holds the chat logic behind the bot commands and buttons, independent of telebot contexts.
type Replies struct {
	settings *app.SettingsService
	outreach *app.OutreachService
	digests  *app.DigestService
	logger   *logrus.Entry
}

func NewReplies(settings *app.SettingsService, outreach *app.OutreachService, digests *app.DigestService, logger *logrus.Entry) *Replies {
	return &Replies{settings: settings, outreach: outreach, digests: digests, logger: logger}
}

func notLinkedText(chatID int64) string {
	return fmt.Sprintf("This chat is not linked to a workspace yet. Ask an administrator to run:\n\noutreachctl tenant link <tenant-id> %d", chatID)
}

// errChatNotLinked is returned by button handlers pressed in a chat without a tenant.
var errChatNotLinked = apperrors.NotFound("chat is not linked to a tenant")

// callbackMessage is userMessage for button presses, which may come from an unlinked chat.
func callbackMessage(chatID int64, err error) string {
	if errors.Is(err, errChatNotLinked) {
		return notLinkedText(chatID)
	}
	return userMessage(err)
}

// userMessage turns a service error into something safe to show in the chat.
func userMessage(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return "That follow-up no longer exists."
	case apperrors.KindInvalidState:
		return "That follow-up was already updated."
	case apperrors.KindValidation:
		return "That button is no longer valid."
	}
	return "Something went wrong. Please try again later or contact support."
}

func (r *Replies) tenant(ctx context.Context, chatID int64) (*tenant.Tenant, bool, error) {
	t, err := r.settings.TenantForChat(ctx, chatID)
	if errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (r *Replies) Start(ctx context.Context, chatID int64) string {
	t, ok, err := r.tenant(ctx, chatID)
	if err != nil {
		r.logger.WithError(err).WithField("chat_id", chatID).Error("Error resolving tenant for /start")
		return userMessage(err)
	}
	if !ok {
		return notLinkedText(chatID)
	}
	return fmt.Sprintf("Hello! This chat receives the follow-up digest for %s.\n\n%s", t.Name, helpText)
}

func (r *Replies) Help(ctx context.Context, chatID int64) string {
	if _, ok, err := r.tenant(ctx, chatID); err == nil && !ok {
		return notLinkedText(chatID)
	}
	return helpText
}

// Due renders today's digest for the chat's tenant, buttons included.
func (r *Replies) Due(ctx context.Context, chatID int64) (string, *telebot.ReplyMarkup) {
	t, ok, err := r.tenant(ctx, chatID)
	if err != nil {
		r.logger.WithError(err).WithField("chat_id", chatID).Error("Error resolving tenant for /due")
		return userMessage(err), nil
	}
	if !ok {
		return notLinkedText(chatID), nil
	}
	d, err := r.digests.DigestFor(ctx, t)
	if err != nil {
		r.logger.WithError(err).WithField("tenant_id", t.ID).Error("Error building digest for /due")
		return userMessage(err), nil
	}
	return app.RenderDigest(d), app.DigestMarkup(d)
}

func (r *Replies) resolve(ctx context.Context, chatID int64, payload string) (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	t, ok, err := r.tenant(ctx, chatID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, errChatNotLinked
	}
	followUpID, err := uuid.Parse(payload)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, apperrors.Validation("invalid follow-up id %q", payload)
	}
	recordID, err := r.outreach.FollowUpRecordID(ctx, t.ID, followUpID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	return t.ID, recordID, followUpID, nil
}

// Log marks the follow-up named by payload as sent and offers an undo button.
func (r *Replies) Log(ctx context.Context, chatID int64, payload string) (string, *telebot.ReplyMarkup, error) {
	tenantID, recordID, followUpID, err := r.resolve(ctx, chatID, payload)
	if err != nil {
		return callbackMessage(chatID, err), nil, err
	}
	res, err := r.outreach.LogFollowUp(ctx, tenantID, recordID, followUpID)
	if err != nil {
		return userMessage(err), nil, err
	}

	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("↩️ Undo", app.UnlogButtonUnique, followUpID.String())))
	text := fmt.Sprintf("Logged follow-up #%d for %s. Status: %s.", res.FollowUp.Sequence, res.Record.Title, res.Record.Status.Label())
	return text, markup, nil
}

// Unlog reverts a logged follow-up to its original due date.
func (r *Replies) Unlog(ctx context.Context, chatID int64, payload string) (string, error) {
	tenantID, recordID, followUpID, err := r.resolve(ctx, chatID, payload)
	if err != nil {
		return callbackMessage(chatID, err), err
	}
	res, err := r.outreach.UnlogFollowUp(ctx, tenantID, recordID, followUpID)
	if err != nil {
		return userMessage(err), err
	}
	return fmt.Sprintf("Follow-up #%d for %s is pending again, due %s. Status: %s.",
		res.FollowUp.Sequence, res.Record.Title, res.FollowUp.ScheduledDate.Format("Mon, 02 Jan"), res.Record.Status.Label()), nil
}
