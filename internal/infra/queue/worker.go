package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
)

// consumer is satisfied by *amqp.Channel.
type consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// channel consumes jobs and dead-letters the failed ones itself.
type channel interface {
	consumer
	publisher
}

// FailureHeader carries the delivery error of a dead-lettered job.
const FailureHeader = "x-onboarding-error"

// OnboardingSender delivers an onboarding message (email and WhatsApp).
type OnboardingSender interface {
	SendOnboarding(ctx context.Context, msg entity.OnboardingMessage) error
}

// Worker consumes q.onboarding and hands each job to the sender. A failed
// job is republished to the DLQ without its temporary password and the
// original is acked. Unparseable bodies are rejected to the DLQ as they are.
type Worker struct {
	Channel channel
	Sender  OnboardingSender
	Logger  *slog.Logger
}

func NewWorker(ch channel, sender OnboardingSender, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{Channel: ch, Sender: sender, Logger: log}
}

// Start consumes until ctx is done or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	msgs, err := w.Channel.Consume(
		OnboardingQueue,
		"pipeline-onboarding",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.Logger.Info("onboarding worker started", "queue", OnboardingQueue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("onboarding deliveries closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg entity.OnboardingMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.Logger.Error("malformed onboarding job", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
		return
	}

	log := w.Logger.With("lead_id", msg.LeadID, "intent_id", msg.IntentID)
	sendErr := w.Sender.SendOnboarding(ctx, msg)
	if sendErr == nil {
		log.Info("onboarding job delivered")
		_ = d.Ack(false)
		return
	}

	middleware.RecordNotificationFailure("email")
	log.Error("onboarding job failed", "error", sendErr)
	if err := w.deadLetter(ctx, d.MessageId, msg, sendErr); err != nil {
		log.Error("could not dead-letter onboarding job, requeueing", "error", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// deadLetter publishes the job to the DLX with the password removed: the
// DLQ is durable and readable by anyone with broker access.
func (w *Worker) deadLetter(ctx context.Context, messageID string, msg entity.OnboardingMessage, cause error) error {
	msg.TemporaryPassword = ""
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	return w.Channel.PublishWithContext(context.WithoutCancel(ctx),
		DLXName,
		OnboardingRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table{FailureHeader: cause.Error()},
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
