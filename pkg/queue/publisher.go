package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/hsong-dev/tradegate/pkg/exchange"
)

// TradePublisher hands settled trades off to the downstream Kafka
// topic. Delivery is at-least-once; consumers deduplicate.
type TradePublisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

var _ exchange.TradeQueue = (*TradePublisher)(nil)

func NewTradePublisher(brokers []string, topic string, log *zap.SugaredLogger) *TradePublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &TradePublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (p *TradePublisher) Close() error { return p.writer.Close() }

// Publish writes one trade message keyed by symbol so per-symbol
// ordering holds within a partition.
func (p *TradePublisher) Publish(ctx context.Context, msg *exchange.TradeMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal trade message: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Trade.Symbol),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write trade message: %w", err)
	}
	p.log.Debugw("trade_published", "trade_id", msg.Trade.ID, "symbol", msg.Trade.Symbol)
	return nil
}

// EnsureTopic attempts to create the topic (best-effort).
func EnsureTopic(ctx context.Context, broker, topic string) {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return
	}
	defer conn.Close()

	_ = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
