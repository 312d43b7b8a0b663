package producer

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/radieske/bet-tracker-poc/internal/shared/kafka"
	"github.com/radieske/bet-tracker-poc/pkg/contracts/events"
)

// KafkaProducer publica os eventos do tracker, um writer por tópico.
type KafkaProducer struct {
	placed  *kafkago.Writer
	settled *kafkago.Writer
}

func New(brokers, topicPlaced, topicSettled string) *KafkaProducer {
	return &KafkaProducer{
		placed:  kafka.NewWriter(brokers, topicPlaced),
		settled: kafka.NewWriter(brokers, topicSettled),
	}
}

func (p *KafkaProducer) PublishBetPlaced(ctx context.Context, evt events.BetPlaced) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal bet_placed: %w", err)
	}
	return kafka.WriteJSON(ctx, p.placed, fmt.Sprintf("%d", evt.BetID), payload)
}

func (p *KafkaProducer) PublishBetSettled(ctx context.Context, evt events.BetSettled) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal bet_settled: %w", err)
	}
	return kafka.WriteJSON(ctx, p.settled, fmt.Sprintf("%d", evt.BetID), payload)
}

func (p *KafkaProducer) Close() error {
	if err := p.placed.Close(); err != nil {
		return err
	}
	return p.settled.Close()
}
