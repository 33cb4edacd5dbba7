package kafka

import (
	"context"
)

// IKafkaProducer интерфейс для отправки сообщений в Kafka
type IKafkaProducer interface {
	// Send отправляет произвольное сообщение
	Send(ctx context.Context, key string, value []byte) error
	// SendWithHeaders отправляет сообщение с заголовками
	SendWithHeaders(ctx context.Context, key string, value []byte, headers map[string]string) error
	Close() error
}
