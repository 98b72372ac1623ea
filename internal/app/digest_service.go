// internal/app/digest_service.go
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/subscription"
	domainTelegram "outreach_tracker/internal/domain/telegram"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// LogButtonUnique is the callback endpoint of the "mark sent" button.
const LogButtonUnique = "log"

// UnlogButtonUnique is the callback endpoint of the undo button sent after logging.
const UnlogButtonUnique = "unlog"

const maxButtonTitle = 32

// DigestItem is one action-required follow-up.
type DigestItem struct {
	RecordID    uuid.UUID
	FollowUpID  uuid.UUID
	Title       string
	Counterpart string
	Sequence    int
	Status      outreach.Status
	DueDate     time.Time
	DaysOverdue int
}

// Digest is the daily summary for one tenant.
type Digest struct {
	TenantID   uuid.UUID
	TenantName string
	Today      time.Time
	Items      []DigestItem
	Grace      subscription.Grace
}

// Empty reports whether there is nothing worth sending.
func (d Digest) Empty() bool {
	return len(d.Items) == 0 && !d.Grace.InGracePeriod
}

// BuildDigest collects the action-required entries of board.
func BuildDigest(t *tenant.Tenant, board outreach.Board, ev subscription.Evaluation, today time.Time) Digest {
	d := Digest{TenantID: t.ID, TenantName: t.Name, Today: clock.DateOnly(today), Grace: ev.Grace}
	for _, e := range board.ActionRequired {
		if e.Next == nil {
			continue
		}
		due := clock.DateOnly(e.Next.ScheduledDate)
		d.Items = append(d.Items, DigestItem{
			RecordID:    e.Record.ID,
			FollowUpID:  e.Next.ID,
			Title:       e.Record.Title,
			Counterpart: e.Record.CounterpartName,
			Sequence:    e.Next.Sequence,
			Status:      e.Record.Status,
			DueDate:     due,
			DaysOverdue: int(d.Today.Sub(due) / (24 * time.Hour)),
		})
	}
	return d
}

func dueText(daysOverdue int) string {
	switch {
	case daysOverdue <= 0:
		return "due today"
	case daysOverdue == 1:
		return "1 day overdue"
	default:
		return fmt.Sprintf("%d days overdue", daysOverdue)
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// RenderDigest formats the digest as plain text.
func RenderDigest(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Follow-ups for %s on %s\n\n", d.TenantName, d.Today.Format("Mon, 02 Jan 2006"))
	if len(d.Items) == 0 {
		b.WriteString("Nothing is due today.\n")
	}
	for i, it := range d.Items {
		fmt.Fprintf(&b, "%d. %s", i+1, it.Title)
		if it.Counterpart != "" {
			fmt.Fprintf(&b, " (%s)", it.Counterpart)
		}
		fmt.Fprintf(&b, ": follow-up #%d, %s [%s]\n", it.Sequence, dueText(it.DaysOverdue), it.Status.Label())
	}
	if d.Grace.InGracePeriod {
		fmt.Fprintf(&b, "\nYour Premium plan has expired and Free limits apply. Renew within %s to keep records over those limits.\n",
			pluralDays(d.Grace.DaysRemaining))
	}
	return b.String()
}

func buttonTitle(title string) string {
	r := []rune(title)
	if len(r) <= maxButtonTitle {
		return title
	}
	return string(r[:maxButtonTitle-1]) + "…"
}

// DigestMarkup builds one "Sent" button per item.
func DigestMarkup(d Digest) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(d.Items))
	for _, it := range d.Items {
		btn := markup.Data("✅ Sent: "+buttonTitle(it.Title), LogButtonUnique, it.FollowUpID.String())
		rows = append(rows, markup.Row(btn))
	}
	markup.Inline(rows...)
	return markup
}

// DigestService sends the daily action-required summary to every tenant with a Telegram chat.
type DigestService struct {
	tenantRepo     tenant.Repository
	outreach       *OutreachService
	entitlements   *EntitlementService
	telegramClient domainTelegram.Client
	clock          clock.Clock
	logger         *logrus.Entry
}

func NewDigestService(
	tr tenant.Repository,
	outreachService *OutreachService,
	entitlements *EntitlementService,
	tc domainTelegram.Client,
	clk clock.Clock,
	logger *logrus.Entry,
) *DigestService {
	return &DigestService{
		tenantRepo:     tr,
		outreach:       outreachService,
		entitlements:   entitlements,
		telegramClient: tc,
		clock:          clk,
		logger:         logger,
	}
}

// DigestFor assembles the digest of one tenant without sending it.
func (s *DigestService) DigestFor(ctx context.Context, t *tenant.Tenant) (Digest, error) {
	board, err := s.outreach.Board(ctx, t.ID, outreach.SortNextFollowUp)
	if err != nil {
		return Digest{}, err
	}
	ev, err := s.entitlements.Evaluate(ctx, t.ID)
	if err != nil {
		return Digest{}, err
	}
	return BuildDigest(t, board, ev, s.clock.Today()), nil
}

// SendDigest sends the digest to the tenant's chat. It reports false when there was nothing
// to send or no chat is linked.
func (s *DigestService) SendDigest(ctx context.Context, t *tenant.Tenant) (bool, error) {
	if !t.TelegramChatID.Valid || s.telegramClient == nil {
		return false, nil
	}
	d, err := s.DigestFor(ctx, t)
	if err != nil {
		return false, err
	}
	if d.Empty() {
		return false, nil
	}
	opts := &telebot.SendOptions{ReplyMarkup: DigestMarkup(d)}
	if err := s.telegramClient.SendMessage(t.TelegramChatID.Int64, RenderDigest(d), opts); err != nil {
		return false, fmt.Errorf("failed to send digest to tenant %s: %w", t.ID, err)
	}
	return true, nil
}

// SendDailyDigests runs once per day. A failure for one tenant does not stop the others.
func (s *DigestService) SendDailyDigests(ctx context.Context) error {
	log := s.logger.WithField("date", s.clock.Today().Format(time.DateOnly))
	if s.telegramClient == nil {
		log.Warn("Telegram is not configured, skipping daily digests")
		return nil
	}
	log.Info("Sending daily digests")

	tenants, err := s.tenantRepo.ListWithTelegram(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list tenants with a Telegram chat")
		return fmt.Errorf("failed to list tenants with a telegram chat: %w", err)
	}
	if len(tenants) == 0 {
		log.Info("No tenants have a Telegram chat linked")
		return nil
	}

	sent, failed := 0, 0
	for _, t := range tenants {
		ok, err := s.SendDigest(ctx, t)
		if err != nil {
			failed++
			log.WithError(err).WithField("tenant_id", t.ID).Error("Failed to send digest")
			continue
		}
		if ok {
			sent++
		}
	}
	log.WithFields(logrus.Fields{"sent": sent, "failed": failed, "tenants": len(tenants)}).Info("Daily digests done")
	if failed > 0 {
		return fmt.Errorf("digest failed for %d of %d tenants", failed, len(tenants))
	}
	return nil
}
