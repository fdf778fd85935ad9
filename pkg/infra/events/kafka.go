// Package events streams finalized match results to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
)

// KafkaResultPublisher writes finalized matches to a Kafka topic, keyed by
// match id so per-match ordering holds.
type KafkaResultPublisher struct {
	writer *kafka.Writer
}

// NewKafkaResultPublisher creates a publisher for the given brokers/topic.
func NewKafkaResultPublisher(brokers []string, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishResult writes one match result.
func (p *KafkaResultPublisher) PublishResult(ctx context.Context, m *pvp_entities.Match) error {
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match result: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.MatchID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("write match result: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaResultPublisher) Close() error {
	return p.writer.Close()
}

// NoopResultPublisher discards results; used when no brokers are
// configured.
type NoopResultPublisher struct{}

func (NoopResultPublisher) PublishResult(context.Context, *pvp_entities.Match) error { return nil }

var (
	_ pvp_out.ResultPublisher = (*KafkaResultPublisher)(nil)
	_ pvp_out.ResultPublisher = NoopResultPublisher{}
)
