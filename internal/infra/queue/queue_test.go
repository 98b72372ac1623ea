package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"outreach_tracker/internal/app"
	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/events"
	"outreach_tracker/internal/domain/subscription"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/streadway/amqp"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	published []published
	err       error
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeBilling struct {
	got []app.BillingEvent
	err error
}

func (f *fakeBilling) Apply(ctx context.Context, e app.BillingEvent) (*subscription.State, error) {
	f.got = append(f.got, e)
	if f.err != nil {
		return nil, f.err
	}
	st := subscription.NewFreeState(e.TenantID, time.Now())
	st.Tier = subscription.TierPremium
	return st, nil
}

func nullEntry() *logrus.Entry {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

func TestEventPublisher_RoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := NewEventPublisher(ch, "outreach.events", nullEntry())
	e := events.Event{ID: uuid.New(), Type: events.TypeFollowUpLogged, TenantID: uuid.New(), RecordID: uuid.New(), OccurredAt: time.Now()}

	require.NoError(t, p.Publish(context.Background(), e))
	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "outreach.events", got.exchange)
	assert.Equal(t, "followup.logged", got.key)
	assert.Equal(t, e.ID.String(), got.msg.MessageId)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var decoded events.Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, e.RecordID, decoded.RecordID)

	ch.err = errors.New("channel closed")
	assert.Error(t, p.Publish(context.Background(), e))
}

func TestLogPublisher_LogsFields(t *testing.T) {
	l, hook := test.NewNullLogger()
	p := NewLogPublisher(logrus.NewEntry(l))
	fid := uuid.New()

	require.NoError(t, p.Publish(context.Background(), events.Event{
		Type: events.TypeStatusChanged, FollowUpID: &fid, Attributes: map[string]string{"to": "REMINDER_1"},
	}))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, fid, hook.LastEntry().Data["followup_id"])
	assert.Equal(t, "REMINDER_1", hook.LastEntry().Data["attr_to"])
}

func delivery(t *testing.T, ack *ackRecorder, body any) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, MessageId: "msg-1", Body: raw}
}

func TestBillingConsumer_AppliesAndAcks(t *testing.T) {
	billing := &fakeBilling{}
	c := NewBillingConsumer(billing, nullEntry())
	ack := &ackRecorder{}
	tenantID := uuid.New()

	c.Handle(context.Background(), delivery(t, ack, map[string]any{"tenant_id": tenantID, "period_days": 30}))

	assert.Equal(t, 1, ack.acked)
	require.Len(t, billing.got, 1)
	assert.Equal(t, app.BillingPaymentSucceeded, billing.got[0].Type, "queue defaults to payment events")
	assert.Equal(t, "msg-1", billing.got[0].ID, "message id is the idempotency key fallback")
	assert.Equal(t, tenantID, billing.got[0].TenantID)
}

func TestBillingConsumer_DropsMalformedAndRejected(t *testing.T) {
	c := NewBillingConsumer(&fakeBilling{err: apperrors.Validation("period_days must be positive")}, nullEntry())

	ack := &ackRecorder{}
	c.Handle(context.Background(), delivery(t, ack, []byte("{not json")))
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)

	ack = &ackRecorder{}
	c.Handle(context.Background(), delivery(t, ack, map[string]any{"tenant_id": uuid.New()}))
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestBillingConsumer_RequeuesTransientFailureOnce(t *testing.T) {
	c := NewBillingConsumer(&fakeBilling{err: errors.New("connection reset")}, nullEntry())

	ack := &ackRecorder{}
	d := delivery(t, ack, map[string]any{"tenant_id": uuid.New(), "period_days": 30})
	c.Handle(context.Background(), d)
	assert.True(t, ack.requeue)

	d.Redelivered = true
	c.Handle(context.Background(), d)
	assert.False(t, ack.requeue)
	assert.Equal(t, 2, ack.nacked)
}

func TestBillingConsumer_RunStopsOnClose(t *testing.T) {
	billing := &fakeBilling{}
	c := NewBillingConsumer(billing, nullEntry())
	deliveries := make(chan amqp.Delivery, 1)
	ack := &ackRecorder{}
	deliveries <- delivery(t, ack, map[string]any{"tenant_id": uuid.New(), "period_days": 30})
	close(deliveries)

	c.Run(context.Background(), deliveries)
	assert.Equal(t, 1, ack.acked)
}
