package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"outreach_tracker/internal/domain/events"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// publishChannel is the part of *amqp.Channel the publisher needs.
type publishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// EventPublisher routes domain events to a topic exchange using the event type as routing key.
type EventPublisher struct {
	mu       sync.Mutex
	ch       publishChannel
	exchange string
	logger   *logrus.Entry
}

var _ events.Publisher = (*EventPublisher)(nil)

func NewEventPublisher(ch publishChannel, exchange string, logger *logrus.Entry) *EventPublisher {
	return &EventPublisher{ch: ch, exchange: exchange, logger: logger}
}

func (p *EventPublisher) Publish(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", e.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(p.exchange, string(e.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.OccurredAt,
		Type:         string(e.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", e.Type, err)
	}
	p.logger.WithFields(logrus.Fields{"event": e.Type, "record_id": e.RecordID}).Debug("Event published")
	return nil
}

// LogPublisher records events in the log only; used when no broker is configured.
type LogPublisher struct {
	logger *logrus.Entry
}

var _ events.Publisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *logrus.Entry) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e events.Event) error {
	fields := logrus.Fields{"event": e.Type, "tenant_id": e.TenantID, "record_id": e.RecordID}
	if e.FollowUpID != nil {
		fields["followup_id"] = *e.FollowUpID
	}
	for k, v := range e.Attributes {
		fields["attr_"+k] = v
	}
	p.logger.WithFields(fields).Info("Domain event")
	return nil
}
