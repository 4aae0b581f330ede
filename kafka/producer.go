package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"plcvisualizer/config"
	"plcvisualizer/models"
)

// Producer publishes value updates as JSON keyed by parameter id
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewSyncProducer dials the configured brokers
func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.BrokerList(), NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

// NewProducer wraps a sync producer
func NewProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{producer: producer, topic: topic, logger: logger}
}

// Publish sends every update in one batch
func (p *Producer) Publish(updates []models.ValueUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(updates))
	for _, u := range updates {
		value, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("failed to marshal update for %s: %w", u.ParameterID, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(u.ParameterID),
			Value: sarama.ByteEncoder(value),
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("failed to publish %d updates: %w", len(msgs), err)
	}
	p.logger.Debug("Published updates", zap.String("topic", p.topic), zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
