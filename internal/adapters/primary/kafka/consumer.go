package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	kafkaAdapter "github.com/admin/ai-studio/internal/adapters/secondary/kafka"
	"github.com/admin/ai-studio/internal/domain"
	kafkaPorts "github.com/admin/ai-studio/internal/ports/kafka"
)

const (
	maxHandleAttempts = 5
	retryBaseDelay    = 500 * time.Millisecond
)

// Consumer consumer group одного топика
type Consumer struct {
	consumer sarama.ConsumerGroup
	topic    string
	handler  kafkaPorts.MessageHandler
	log      *slog.Logger
}

func NewConsumer(cfg *kafkaAdapter.Config, handler kafkaPorts.MessageHandler, log *slog.Logger) (*Consumer, error) {
	if cfg.ConsumerGroup == "" {
		return nil, fmt.Errorf("consumer group is required for topic %s", cfg.Topic)
	}

	config := cfg.SaramaConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(cfg.GetBrokers(), cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	log.Info("kafka consumer created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"consumer_group", cfg.ConsumerGroup,
	)

	return &Consumer{
		consumer: group,
		topic:    cfg.Topic,
		handler:  handler,
		log:      log,
	}, nil
}

// Start блокируется до отмены ctx. Consume возвращается при ребалансе, поэтому крутим в цикле.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{
		handler:     c.handler,
		log:         c.log,
		topic:       c.topic,
		maxAttempts: maxHandleAttempts,
		retryDelay:  retryBaseDelay,
	}

	for {
		if err := c.consumer.Consume(ctx, []string{c.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Error("error from consumer", "error", err, "topic", c.topic)
			return fmt.Errorf("consumer error: %w", err)
		}
		if ctx.Err() != nil {
			c.log.Info("kafka consumer stopping", "topic", c.topic)
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.log.Info("kafka consumer closed", "topic", c.topic)
	return nil
}

// groupHandler реализует sarama.ConsumerGroupHandler
type groupHandler struct {
	handler     kafkaPorts.MessageHandler
	log         *slog.Logger
	topic       string
	maxAttempts int
	retryDelay  time.Duration
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Info("kafka consumer group session setup", "topic", h.topic)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Info("kafka consumer group session cleanup", "topic", h.topic)
	return nil
}

// ConsumeClaim offset коммитится только после успешной обработки или бизнес-ошибки.
// Если временная ошибка не прошла за maxAttempts, сессия завершается без коммита,
// и после ребаланса сообщение придёт снова.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(session.Context(), message); err != nil {
				return err
			}
			session.MarkMessage(message, "")
		}
	}
}

// process бизнес-ошибки (битое сообщение, неизвестная джоба) не повторяются,
// остальные повторяются с растущей паузой
func (h *groupHandler) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	headers := make([]sarama.RecordHeader, 0, len(message.Headers))
	for _, hdr := range message.Headers {
		if hdr != nil {
			headers = append(headers, *hdr)
		}
	}

	log := h.log.With(
		"topic", message.Topic,
		"key", string(message.Key),
		"partition", message.Partition,
		"offset", message.Offset,
	)

	delay := h.retryDelay
	var err error
	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		err = h.handler.HandleMessage(ctx, string(message.Key), message.Value, headers)
		if err == nil {
			return nil
		}
		if domain.IsBusinessError(err) {
			log.Warn("kafka message dropped", "error", err)
			return nil
		}

		log.Error("failed to handle kafka message", "error", err, "attempt", attempt)
		if attempt == h.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("handling interrupted: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("kafka message not handled after %d attempts [topic=%s, offset=%d]: %w",
		h.maxAttempts, message.Topic, message.Offset, err)
}
