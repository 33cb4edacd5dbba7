package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockProducer(t *testing.T) (*mocks.SyncProducer, *Producer) {
	t.Helper()
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, config)
	return sp, NewProducerFrom(sp, "events", testLogger())
}

func TestEventPublisher_Publish(t *testing.T) {
	sp, producer := newMockProducer(t)
	userID := uuid.New()

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got domain.DomainEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != domain.EventCreditsChanged || got.UserID != userID {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	err := NewEventPublisher(producer).Publish(context.Background(), domain.DomainEvent{
		Type:       domain.EventCreditsChanged,
		UserID:     userID,
		OccurredAt: time.Now(),
		Payload:    map[string]interface{}{"balance": 7},
	})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestTrainingPublisher_SendFailure(t *testing.T) {
	sp, producer := newMockProducer(t)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := NewTrainingPublisher(producer).PublishTrainingRequest(context.Background(), domain.TrainingRequest{
		JobID:       uuid.New(),
		UserID:      uuid.New(),
		Name:        "me",
		TriggerWord: "ohwx",
		ImageURLs:   []string{"https://cdn/1.jpg"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

func TestProducer_CanceledContext(t *testing.T) {
	_, producer := newMockProducer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := producer.Send(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, producer.Close())
}

func TestKafkaConfigs_Get(t *testing.T) {
	kc := &KafkaConfigs{List: []KafkaConfig{
		{Name: TrainingRequests, Config: &Config{Topic: "train"}},
		{Name: DomainEvents, Config: &Config{Topic: "events"}},
	}}

	require.NotNil(t, kc.Get(DomainEvents))
	assert.Equal(t, "events", kc.Get(DomainEvents).Topic)
	assert.Nil(t, kc.Get(TrainingResults))

	var empty *KafkaConfigs
	assert.Nil(t, empty.Get(DomainEvents))
}

func TestConfig_SaramaConfig(t *testing.T) {
	cfg := (&Config{SecurityProtocol: "SASL_SSL", SASLMechanism: "SCRAM-SHA-256", SASLUsername: "u"}).SaramaConfig()
	assert.True(t, cfg.Net.SASL.Enable)
	assert.True(t, cfg.Net.TLS.Enable)
	assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypeSCRAMSHA256), cfg.Net.SASL.Mechanism)

	plain := (&Config{}).SaramaConfig()
	assert.False(t, plain.Net.SASL.Enable)
	assert.Equal(t, []string{"localhost:9092"}, (&Config{}).GetBrokers())
}
