package app

import (
	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/directory"
	"outreach_tracker/internal/domain/events"
	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/subscription"
	domainTelegram "outreach_tracker/internal/domain/telegram"
	"outreach_tracker/internal/domain/tenant"

	"github.com/sirupsen/logrus"
)

// Dependencies is everything the services are built from.
type Dependencies struct {
	Tenants       tenant.Repository
	Outreach      outreach.Repository
	Subscriptions subscription.Repository
	Usage         subscription.UsageCounter
	Directory     directory.Repository

	Quotas         subscription.QuotaTable
	GraceDays      int
	DefaultOffsets []int

	Publisher events.Publisher
	Telegram  domainTelegram.Client // nil disables digest delivery
	Clock     clock.Clock
	Logger    *logrus.Entry
}

// Services groups the application services of one process.
type Services struct {
	Entitlements *EntitlementService
	Outreach     *OutreachService
	Settings     *SettingsService
	Billing      *BillingService
	Directory    *DirectoryService
	Digests      *DigestService
}

func NewServices(d Dependencies) *Services {
	if d.Quotas == nil {
		d.Quotas = subscription.DefaultQuotaTable()
	}
	log := func(name string) *logrus.Entry { return d.Logger.WithField("service", name) }

	s := &Services{}
	s.Entitlements = NewEntitlementService(d.Subscriptions, d.Usage, d.Quotas, d.GraceDays, d.Clock, log("entitlement"))
	s.Outreach = NewOutreachService(d.Outreach, d.Tenants, s.Entitlements, d.Publisher, d.DefaultOffsets, d.Clock, log("outreach"))
	s.Settings = NewSettingsService(d.Tenants, d.Outreach, d.Subscriptions, d.DefaultOffsets, d.Clock, log("settings"))
	s.Billing = NewBillingService(d.Subscriptions, d.Tenants, d.Clock, log("billing"))
	s.Directory = NewDirectoryService(d.Directory, d.Tenants, s.Entitlements, d.Clock, log("directory"))
	s.Digests = NewDigestService(d.Tenants, s.Outreach, s.Entitlements, d.Telegram, d.Clock, log("digest"))
	return s
}
