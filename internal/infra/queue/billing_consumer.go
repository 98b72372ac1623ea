package queue

import (
	"context"
	"encoding/json"

	"outreach_tracker/internal/app"
	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/subscription"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// BillingApplier applies one billing event to subscription state.
type BillingApplier interface {
	Apply(ctx context.Context, e app.BillingEvent) (*subscription.State, error)
}

// BillingConsumer feeds billing queue messages into the billing service.
type BillingConsumer struct {
	billing BillingApplier
	logger  *logrus.Entry
}

func NewBillingConsumer(billing BillingApplier, logger *logrus.Entry) *BillingConsumer {
	return &BillingConsumer{billing: billing, logger: logger}
}

// Run handles deliveries until ctx is done or the channel closes.
func (c *BillingConsumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	c.logger.Info("Billing consumer running, waiting for messages...")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Billing consumer stopping")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Billing delivery channel closed")
				return
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle settles every delivery. Applied events are acked, malformed or rejected ones are
// dropped and other failures are requeued once.
func (c *BillingConsumer) Handle(ctx context.Context, d amqp.Delivery) {
	log := c.logger.WithField("delivery_tag", d.DeliveryTag)

	var e app.BillingEvent
	if err := json.Unmarshal(d.Body, &e); err != nil {
		log.WithError(err).Error("Invalid billing message, dropping")
		c.settle(log, d.Nack(false, false))
		return
	}
	if e.Type == "" {
		e.Type = app.BillingPaymentSucceeded
	}
	if e.ID == "" {
		e.ID = d.MessageId
	}
	log = log.WithFields(logrus.Fields{"billing_event_id": e.ID, "type": e.Type, "tenant_id": e.TenantID})

	state, err := c.billing.Apply(ctx, e)
	if err != nil {
		switch apperrors.KindOf(err) {
		case apperrors.KindValidation, apperrors.KindNotFound:
			log.WithError(err).Error("Billing event rejected, dropping")
			c.settle(log, d.Nack(false, false))
		default:
			requeue := !d.Redelivered
			log.WithError(err).WithField("requeue", requeue).Error("Failed to apply billing event")
			c.settle(log, d.Nack(false, requeue))
		}
		return
	}

	fields := logrus.Fields{"tier": state.Tier, "status": state.Status}
	if state.ExpiresAt.Valid {
		fields["expires_at"] = state.ExpiresAt.Time
	}
	log.WithFields(fields).Info("Billing event applied")
	c.settle(log, d.Ack(false))
}

func (c *BillingConsumer) settle(log *logrus.Entry, err error) {
	if err != nil {
		log.WithError(err).Error("Failed to settle delivery")
	}
}
