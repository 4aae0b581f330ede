package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"plcvisualizer/config"
	"plcvisualizer/connectors"
	"plcvisualizer/metrics"
	"plcvisualizer/models"
	"plcvisualizer/services"
)

// DefaultTopic carries simulator readings
const DefaultTopic = "plc.readings"

// Consumer reads value updates from every partition of its topics
type Consumer struct {
	consumer   sarama.Consumer
	partitions []sarama.PartitionConsumer
	feed       *connectors.Feed
	wg         sync.WaitGroup
	logger     *zap.Logger
}

// NewSaramaConfig builds the client configuration shared by consumer and producer
func NewSaramaConfig(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	if cfg.GroupID != "" {
		sc.ClientID = cfg.GroupID
	}
	sc.Consumer.Return.Errors = true
	sc.Consumer.Fetch.Min = 1
	sc.Consumer.MaxWaitTime = 500 * time.Millisecond
	sc.Consumer.Offsets.Initial = InitialOffset(cfg.AutoOffset)
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	return sc
}

// InitialOffset maps the auto.offset.reset style setting onto a sarama offset
func InitialOffset(autoOffset string) int64 {
	if strings.EqualFold(autoOffset, "earliest") {
		return sarama.OffsetOldest
	}
	return sarama.OffsetNewest
}

// Opener returns a feed opener for the kafka protocol. The settings topic,
// when present, replaces the configured topic list.
func Opener(cfg config.KafkaConfig, logger *zap.Logger, collector metrics.Collector) services.FeedOpener {
	return func(ctx context.Context, settings models.PLCConnectionSettings) (services.Feed, error) {
		topics := cfg.Topics
		if settings.Topic != "" {
			topics = []string{settings.Topic}
		}
		if len(topics) == 0 {
			topics = []string{DefaultTopic}
		}

		sc := NewSaramaConfig(cfg)
		consumer, err := sarama.NewConsumer(cfg.BrokerList(), sc)
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer: %w", err)
		}

		c, err := NewConsumer(consumer, topics, sc.Consumer.Offsets.Initial, logger, collector)
		if err != nil {
			consumer.Close()
			return nil, err
		}
		return c, nil
	}
}

// NewConsumer starts a partition consumer for every partition of topics
func NewConsumer(consumer sarama.Consumer, topics []string, offset int64, logger *zap.Logger, collector metrics.Collector) (*Consumer, error) {
	c := &Consumer{consumer: consumer, logger: logger}
	c.feed = connectors.NewFeed("kafka", c.closeConsumer, logger, collector)

	for _, topic := range topics {
		partitions, err := consumer.Partitions(topic)
		if err != nil {
			c.closePartitions()
			return nil, fmt.Errorf("failed to list partitions of %s: %w", topic, err)
		}
		for _, partition := range partitions {
			pc, err := consumer.ConsumePartition(topic, partition, offset)
			if err != nil {
				c.closePartitions()
				return nil, fmt.Errorf("failed to consume %s/%d: %w", topic, partition, err)
			}
			c.partitions = append(c.partitions, pc)
		}
	}

	logger.Info("Starting Kafka consumer",
		zap.Strings("topics", topics),
		zap.Int("partitions", len(c.partitions)),
	)

	for _, pc := range c.partitions {
		c.wg.Add(1)
		go c.consumePartition(pc)
	}
	go func() {
		c.wg.Wait()
		c.feed.End()
	}()

	return c, nil
}

func (c *Consumer) consumePartition(pc sarama.PartitionConsumer) {
	defer c.wg.Done()

	messages, errs := pc.Messages(), pc.Errors()
	for messages != nil || errs != nil {
		select {
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			c.feed.Push(msg.Value)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Warn("Consumer error", zap.Error(err))
		}
	}
}

// Updates returns the decoded value updates
func (c *Consumer) Updates() <-chan models.ValueUpdate {
	return c.feed.Updates()
}

// Close stops consuming and closes the client
func (c *Consumer) Close() error {
	return c.feed.Close()
}

func (c *Consumer) closePartitions() {
	for _, pc := range c.partitions {
		pc.AsyncClose()
	}
}

func (c *Consumer) closeConsumer() error {
	c.logger.Info("Stopping Kafka consumer...")
	c.closePartitions()
	c.wg.Wait()
	return c.consumer.Close()
}
