package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types published after a mutation commits
const (
	OrderCreated             = "order.created"
	OrderStatusChanged       = "order.status_changed"
	ScheduledOrderCreated    = "scheduled_order.created"
	ScheduledOrderActivated  = "scheduled_order.activated"
	DriverPaymentRecorded    = "driver.payment_recorded"
	DriverWithdrawalRecorded = "driver.withdrawal_recorded"
	DriverEarningsCredited   = "driver.earnings_credited"
)

// Event is a domain notification. Key groups related events on one partition.
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType, key string, payload interface{}) Event {
	return Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher delivers events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...Event) error { return nil }
func (NoopPublisher) Close() error                            { return nil }

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages to a Kafka topic
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
			},
			Time: e.OccurredAt,
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write events to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// MemoryPublisher keeps events in memory for tests and local runs
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher creates an empty in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Publish(_ context.Context, events ...Event) error {
	m.mu.Lock()
	m.events = append(m.events, events...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// OfType returns the published events with the given type
func (m *MemoryPublisher) OfType(eventType string) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
