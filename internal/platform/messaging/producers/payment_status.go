package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bobaapp-backend/internal/config"
	"github.com/segmentio/kafka-go"
)

type PaymentStatusProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates the payment status event producer and ensures the topic exists
func NewPaymentStatusProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*PaymentStatusProducer, error) {
	if cfg.PaymentTopic == "" {
		return nil, fmt.Errorf("kafka payment topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for payment status producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.PaymentTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure payment topic %s exists: %w", cfg.PaymentTopic, err)
	}

	// Synchronous writes: the callback endpoint must know the event landed
	// before acknowledging the provider, otherwise the signal is lost.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.PaymentTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &PaymentStatusProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.PaymentTopic,
	}, nil
}

// Publish writes one payment status event. Key with the provider ref so all
// signals for a transaction land on the same partition in order.
func (p *PaymentStatusProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal payment status event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish payment status event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish payment status event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published payment status event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *PaymentStatusProducer) Close() error {
	p.logger.Info("Closing payment status Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close payment status kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
