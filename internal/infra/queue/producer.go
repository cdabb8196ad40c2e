package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

// publisher is satisfied by *amqp.Channel.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Producer publishes onboarding jobs and conversion events. In queue mode
// it stands in for the onboarding notifier: a message accepted by the
// broker counts as sent.
type Producer struct {
	ch publisher
}

func NewProducer(ch publisher) *Producer {
	return &Producer{ch: ch}
}

func (p *Producer) SendOnboarding(ctx context.Context, msg entity.OnboardingMessage) error {
	return p.publish(ctx, OnboardingRoutingKey, msg.IntentID, msg)
}

func (p *Producer) PublishLeadConverted(ctx context.Context, event entity.LeadConvertedEvent) error {
	return p.publish(ctx, LeadConvertedRoutingKey, event.IntentID, event)
}

func (p *Producer) publish(ctx context.Context, key, messageID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	err = p.ch.PublishWithContext(ctx,
		ExchangeName,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// NopPublisher drops conversion events when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishLeadConverted(context.Context, entity.LeadConvertedEvent) error {
	return nil
}
