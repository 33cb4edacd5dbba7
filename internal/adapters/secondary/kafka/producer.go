package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// Producer синхронный producer в один топик
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

func NewProducer(cfg *Config, log *slog.Logger) (*Producer, error) {
	config := cfg.SaramaConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Idempotent = false

	producer, err := sarama.NewSyncProducer(cfg.GetBrokers(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("kafka producer created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
	)

	return NewProducerFrom(producer, cfg.Topic, log), nil
}

// NewProducerFrom оборачивает готовый sarama.SyncProducer
func NewProducerFrom(producer sarama.SyncProducer, topic string, log *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

func (p *Producer) Send(ctx context.Context, key string, value []byte) error {
	return p.SendWithHeaders(ctx, key, value, nil)
}

func (p *Producer) SendWithHeaders(ctx context.Context, key string, value []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Debug("kafka send failed",
			"error", err,
			"topic", p.topic,
			"key", key,
		)
		return fmt.Errorf("kafka send failed [topic=%s, key=%s]: %w", p.topic, key, err)
	}

	p.log.Debug("message sent to kafka",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"key", key,
	)
	return nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	p.log.Info("kafka producer closed", "topic", p.topic)
	return nil
}
