package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/events"
	"outreach_tracker/internal/domain/subscription"
	"outreach_tracker/internal/domain/tenant"
	"outreach_tracker/internal/infra/memory"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type sentMessage struct {
	chatID int64
	text   string
	opts   *telebot.SendOptions
}

type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]bool
}

func (f *fakeTelegram) SendMessage(chatID int64, text string, opts *telebot.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return errors.New("telegram: chat not found")
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	return nil
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type harness struct {
	store        *memory.Store
	clock        *clock.Fixed
	publisher    *recordingPublisher
	telegram     *fakeTelegram
	entitlements *EntitlementService
	outreach     *OutreachService
	settings     *SettingsService
	billing      *BillingService
	directory    *DirectoryService
	digest       *DigestService
}

func newHarness(t *testing.T, quotas subscription.QuotaTable) *harness {
	t.Helper()
	if quotas == nil {
		quotas = subscription.DefaultQuotaTable()
	}
	h := &harness{
		store:     memory.NewStore(),
		clock:     clock.NewFixed(time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)),
		publisher: &recordingPublisher{},
		telegram:  &fakeTelegram{fail: map[int64]bool{}},
	}
	log := testLogger()
	h.entitlements = NewEntitlementService(h.store, h.store, quotas, subscription.DefaultGraceDays, h.clock, log)
	h.outreach = NewOutreachService(h.store, h.store, h.entitlements, h.publisher, nil, h.clock, log)
	h.settings = NewSettingsService(h.store, h.store, h.store, nil, h.clock, log)
	h.billing = NewBillingService(h.store, h.store, h.clock, log)
	h.directory = NewDirectoryService(h.store, h.store, h.entitlements, h.clock, log)
	h.digest = NewDigestService(h.store, h.outreach, h.entitlements, h.telegram, h.clock, log)
	return h
}

func (h *harness) tenant(t *testing.T, name string) *tenant.Tenant {
	t.Helper()
	tn, err := h.settings.CreateTenant(context.Background(), name, nil)
	require.NoError(t, err)
	return tn
}

func (h *harness) premium(t *testing.T, tenantID uuid.UUID, expiresAt time.Time) {
	t.Helper()
	st := subscription.NewFreeState(tenantID, h.clock.Now())
	st.Tier = subscription.TierPremium
	st.ExpiresAt.Time, st.ExpiresAt.Valid = expiresAt, true
	require.NoError(t, h.store.SaveState(context.Background(), st))
}
