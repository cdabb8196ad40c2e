package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakePublisher struct {
	out []published
	err error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{exchange, key, msg})
	return nil
}

func TestProducerPublishesOnboardingJob(t *testing.T) {
	pub := &fakePublisher{}
	msg := entity.OnboardingMessage{LeadID: "l1", IntentID: "i1", RecipientEmail: "a@b.fr", TemporaryPassword: "pw"}

	require.NoError(t, NewProducer(pub).SendOnboarding(context.Background(), msg))
	require.Len(t, pub.out, 1)
	assert.Equal(t, ExchangeName, pub.out[0].exchange)
	assert.Equal(t, OnboardingRoutingKey, pub.out[0].key)
	assert.Equal(t, "i1", pub.out[0].msg.MessageId)
	assert.Equal(t, amqp.Persistent, pub.out[0].msg.DeliveryMode)

	var decoded entity.OnboardingMessage
	require.NoError(t, json.Unmarshal(pub.out[0].msg.Body, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestProducerPublishesLeadConverted(t *testing.T) {
	pub := &fakePublisher{}
	event := entity.LeadConvertedEvent{LeadID: "l1", IntentID: "i1", OrganizationID: "o1", Plan: entity.PlanSolo}

	require.NoError(t, NewProducer(pub).PublishLeadConverted(context.Background(), event))
	assert.Equal(t, LeadConvertedRoutingKey, pub.out[0].key)

	err := NewProducer(&fakePublisher{err: errors.New("channel closed")}).PublishLeadConverted(context.Background(), event)
	assert.ErrorContains(t, err, "channel closed")
}

type ackRecorder struct {
	acked, nacked, requeued []uint64
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error { a.acked = append(a.acked, tag); return nil }
func (a *ackRecorder) Nack(tag uint64, _, requeue bool) error {
	if requeue {
		a.requeued = append(a.requeued, tag)
		return nil
	}
	a.nacked = append(a.nacked, tag)
	return nil
}
func (a *ackRecorder) Reject(tag uint64, _ bool) error { a.nacked = append(a.nacked, tag); return nil }

type fakeConsumer struct {
	fakePublisher
	ch chan amqp.Delivery
}

func (f *fakeConsumer) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.ch, nil
}

type senderFunc func(ctx context.Context, msg entity.OnboardingMessage) error

func (f senderFunc) SendOnboarding(ctx context.Context, msg entity.OnboardingMessage) error {
	return f(ctx, msg)
}

func TestWorkerAcksAndRejects(t *testing.T) {
	acks := &ackRecorder{}
	deliveries := make(chan amqp.Delivery, 3)
	good, _ := json.Marshal(entity.OnboardingMessage{LeadID: "ok"})
	failing, _ := json.Marshal(entity.OnboardingMessage{LeadID: "smtp-down"})
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: good}
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: failing}
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 3, Body: []byte("{not json")}
	close(deliveries)

	var sent []string
	sender := senderFunc(func(_ context.Context, msg entity.OnboardingMessage) error {
		sent = append(sent, msg.LeadID)
		if msg.LeadID == "smtp-down" {
			return errors.New("smtp down")
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ch := &fakeConsumer{ch: deliveries}
	err := NewWorker(ch, sender, logger.Discard()).Start(ctx)
	require.Error(t, err, "closed delivery channel ends the worker")

	assert.Equal(t, []string{"ok", "smtp-down"}, sent)
	assert.Equal(t, []uint64{1, 2}, acks.acked)
	assert.Equal(t, []uint64{3}, acks.nacked)
	require.Len(t, ch.out, 1, "the failed job is dead-lettered")
	assert.Equal(t, DLXName, ch.out[0].exchange)
}

func TestWorkerDeadLettersFailedJobWithoutPassword(t *testing.T) {
	acks := &ackRecorder{}
	deliveries := make(chan amqp.Delivery, 1)
	body, _ := json.Marshal(entity.OnboardingMessage{
		LeadID:            "l1",
		IntentID:          "i1",
		RecipientEmail:    "camille@bellepeau.fr",
		LoginEmail:        "camille@bellepeau.fr",
		TemporaryPassword: "Xk7-secret-pw",
		LoginURL:          "https://belle-peau.institut.app/admin",
	})
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 7, MessageId: "i1", Body: body}
	close(deliveries)

	sender := senderFunc(func(context.Context, entity.OnboardingMessage) error { return errors.New("smtp down") })
	ch := &fakeConsumer{ch: deliveries}
	_ = NewWorker(ch, sender, logger.Discard()).Start(context.Background())

	require.Len(t, ch.out, 1)
	dead := ch.out[0]
	assert.Equal(t, DLXName, dead.exchange)
	assert.Equal(t, OnboardingRoutingKey, dead.key)
	assert.Equal(t, "i1", dead.msg.MessageId)
	assert.Equal(t, amqp.Persistent, dead.msg.DeliveryMode)
	assert.Equal(t, "smtp down", dead.msg.Headers[FailureHeader])
	assert.NotContains(t, string(dead.msg.Body), "Xk7-secret-pw")

	var decoded entity.OnboardingMessage
	require.NoError(t, json.Unmarshal(dead.msg.Body, &decoded))
	assert.Equal(t, "i1", decoded.IntentID)
	assert.Equal(t, "https://belle-peau.institut.app/admin", decoded.LoginURL)
	assert.Empty(t, decoded.TemporaryPassword)

	assert.Equal(t, []uint64{7}, acks.acked)
	assert.Empty(t, acks.nacked, "never rejected to the DLQ with its password")
}

func TestWorkerRequeuesWhenDeadLetterFails(t *testing.T) {
	acks := &ackRecorder{}
	deliveries := make(chan amqp.Delivery, 1)
	body, _ := json.Marshal(entity.OnboardingMessage{LeadID: "l1", TemporaryPassword: "pw"})
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 4, Body: body}
	close(deliveries)

	sender := senderFunc(func(context.Context, entity.OnboardingMessage) error { return errors.New("smtp down") })
	ch := &fakeConsumer{fakePublisher: fakePublisher{err: errors.New("channel closed")}, ch: deliveries}
	_ = NewWorker(ch, sender, logger.Discard()).Start(context.Background())

	assert.Empty(t, acks.acked)
	assert.Empty(t, acks.nacked)
	assert.Equal(t, []uint64{4}, acks.requeued)
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWorker(&fakeConsumer{ch: make(chan amqp.Delivery)}, senderFunc(nil), logger.Discard()).Start(ctx)
	assert.NoError(t, err)
}
