package kafka

import (
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/kelseyhightower/envconfig"
)

// Имена подключений в AI_STUDIO_KAFKA_<n>_NAME
const (
	TrainingRequests = "training_requests"
	TrainingResults  = "training_results"
	DomainEvents     = "domain_events"
)

// Config конфигурация одного producer/consumer
type Config struct {
	Brokers          string `envconfig:"BROKERS"`           // "broker1:9092,broker2:9092"
	Topic            string `envconfig:"TOPIC"`
	ConsumerGroup    string `envconfig:"CONSUMER_GROUP"`    // только для consumer
	SecurityProtocol string `envconfig:"SECURITY_PROTOCOL"` // "SASL_SSL", "SASL_PLAINTEXT", "PLAINTEXT"
	SASLMechanism    string `envconfig:"SASL_MECHANISM"`    // "PLAIN", "SCRAM-SHA-256"
	SASLUsername     string `envconfig:"SASL_USERNAME"`
	SASLPassword     string `envconfig:"SASL_PASSWORD"`
}

func (c *Config) GetBrokers() []string {
	if c.Brokers == "" {
		return []string{"localhost:9092"}
	}
	return strings.Split(c.Brokers, ",")
}

// SaramaConfig базовая конфигурация клиента с настройками SASL/TLS
func (c *Config) SaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "ai-studio"

	if c.SecurityProtocol == "SASL_SSL" || c.SecurityProtocol == "SASL_PLAINTEXT" {
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		if c.SASLMechanism == "SCRAM-SHA-256" {
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		}
		config.Net.SASL.User = c.SASLUsername
		config.Net.SASL.Password = c.SASLPassword
		config.Net.TLS.Enable = c.SecurityProtocol == "SASL_SSL"
	}
	return config
}

// KafkaConfigs несколько подключений, различаются по Name
type KafkaConfigs struct {
	Count int           `envconfig:"COUNT" default:"0"`
	List  []KafkaConfig `envconfig:"-"`
}

type KafkaConfig struct {
	Name   string  `envconfig:"NAME"`
	Config *Config `envconfig:"CONFIG"`
}

// Load читает AI_STUDIO_KAFKA_0_*, AI_STUDIO_KAFKA_1_* ...
func (kc *KafkaConfigs) Load(envPrefix string) error {
	kc.List = make([]KafkaConfig, kc.Count)
	for i := 0; i < kc.Count; i++ {
		prefix := fmt.Sprintf("%s_KAFKA_%d", envPrefix, i)
		var kafkaCfg KafkaConfig
		if err := envconfig.Process(prefix, &kafkaCfg); err != nil {
			return fmt.Errorf("failed to load kafka config %d: %w", i, err)
		}
		if kafkaCfg.Name == "" || kafkaCfg.Config == nil || kafkaCfg.Config.Topic == "" {
			return fmt.Errorf("kafka config %d: name and topic are required", i)
		}
		kc.List[i] = kafkaCfg
	}
	return nil
}

// Get возвращает конфиг по имени или nil
func (kc *KafkaConfigs) Get(name string) *Config {
	if kc == nil {
		return nil
	}
	for _, c := range kc.List {
		if c.Name == name {
			return c.Config
		}
	}
	return nil
}
