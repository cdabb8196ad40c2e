package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.pipeline"
	DLXName      = "ex.pipeline.dlx"

	OnboardingQueue      = "q.onboarding"
	OnboardingDLQ        = "q.onboarding.dlq"
	OnboardingRoutingKey = "k.onboarding"

	// lead.converted events land in their own durable queue for downstream
	// consumers (CRM sync, analytics).
	LeadConvertedQueue      = "q.lead_converted"
	LeadConvertedRoutingKey = "lead.converted"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

// setupTopology declares the exchanges and queues. Onboarding jobs that
// fail are dead-lettered to q.onboarding.dlq for inspection.
func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(OnboardingDLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(OnboardingDLQ, OnboardingRoutingKey, DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": OnboardingRoutingKey,
	}
	if _, err := ch.QueueDeclare(OnboardingQueue, true, false, false, false, args); err != nil {
		return err
	}
	if err := ch.QueueBind(OnboardingQueue, OnboardingRoutingKey, ExchangeName, false, nil); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(LeadConvertedQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(LeadConvertedQueue, LeadConvertedRoutingKey, ExchangeName, false, nil)
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		_ = r.Ch.Close()
	}
	return r.Conn.Close()
}
