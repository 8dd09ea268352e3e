package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// KafkaEmitter publishes events as JSON keyed by order id, so every event of
// one order lands on the same partition.
type KafkaEmitter struct {
	w       messageWriter
	timeout time.Duration
}

// NewKafkaEmitter creates a publisher for topic on brokers.
func NewKafkaEmitter(brokers []string, topic string) *KafkaEmitter {
	return &KafkaEmitter{w: newWriter(brokers, topic), timeout: 5 * time.Second}
}

// newWriter returns an async writer: Emit only enqueues, and delivery
// failures are logged from the completion callback.
func newWriter(brokers []string, topic string) *kafkaGo.Writer {
	return &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkaGo.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		Completion:             logDelivery,
	}
}

func logDelivery(msgs []kafkaGo.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		slog.Error("Failed to publish event", "order_id", string(m.Key), "err", err)
	}
}

func (k *KafkaEmitter) Emit(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to marshal event", "name", e.Name, "err", err)
		return
	}
	// the request context may already be finished once the response is written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
	defer cancel()

	if err := k.w.WriteMessages(ctx, kafkaGo.Message{Key: []byte(e.OrderID), Value: payload}); err != nil {
		slog.Error("Failed to publish event", "name", e.Name, "order_id", e.OrderID, "err", err)
	}
}

func (k *KafkaEmitter) Close() error { return k.w.Close() }
