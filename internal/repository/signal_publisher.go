package repository

import (
	"context"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	pkgkafka "Momentum/pkg/kafka"
)

// KafkaSignalPublisher implements EventPublisher for Kafka. Events are keyed
// by symbol so one symbol's signals stay in partition order.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a Kafka event publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) drepo.EventPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, ev models.StreamEvent) error {
	key := []byte(ev.Type)
	if ev.Signal != nil {
		key = []byte(ev.Signal.Symbol)
	}
	return p.producer.Publish(ctx, p.topic, key, ev)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
