package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/goalvault/goalvault-backend/internal/usecase/orchestrator"
)

// TransitionEvent is the JSON payload written to the topic on every
// orchestrator state transition, for downstream dashboards and audits.
type TransitionEvent struct {
	State                string    `json:"state"`
	Message              string    `json:"message"`
	AuthorizationCreated bool      `json:"authorization_created,omitempty"`
	TransferID           string    `json:"transfer_id,omitempty"`
	ErrorKind            string    `json:"error_kind,omitempty"`
	ErrorDetail          string    `json:"error_detail,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// Publisher forwards orchestrator state updates to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher writing to the given brokers and topic
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Sink returns an orchestrator sink backed by this publisher. Publish
// failures are logged, never propagated: the transfer outcome must not
// depend on the event stream being up.
func (p *Publisher) Sink() orchestrator.Sink {
	return func(update orchestrator.StateUpdate) {
		if err := p.Publish(update); err != nil {
			log.Printf("failed to publish transfer transition event: %v", err)
		}
	}
}

// Publish writes a single transition event.
func (p *Publisher) Publish(update orchestrator.StateUpdate) error {
	event := TransitionEvent{
		State:                string(update.State),
		Message:              update.Message,
		AuthorizationCreated: update.AuthorizationCreated,
		OccurredAt:           time.Now().UTC(),
	}
	if update.Outcome != nil {
		event.TransferID = update.Outcome.TransferID
		event.ErrorKind = string(update.Outcome.ErrorKind)
		event.ErrorDetail = update.Outcome.ErrorDetail
		if update.Outcome.AuthorizationCreated {
			event.AuthorizationCreated = true
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(
		context.Background(),
		kafka.Message{Value: data},
	)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
