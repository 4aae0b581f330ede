package connectors

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"plcvisualizer/config"
	"plcvisualizer/metrics"
	"plcvisualizer/models"
	"plcvisualizer/services"
)

// DefaultMQTTTopic is subscribed when the settings carry no topic
const DefaultMQTTTopic = "plc/+/values"

// MQTTBroker returns the broker URL for the settings
func MQTTBroker(settings models.PLCConnectionSettings) string {
	return fmt.Sprintf("tcp://%s:%d", settings.IP, settings.Port)
}

// MQTTOpener subscribes to a broker topic carrying JSON value updates.
// Reconnection is left to the monitor so paho's own retry is disabled.
func MQTTOpener(cfg config.MQTTConfig, logger *zap.Logger, collector metrics.Collector) services.FeedOpener {
	return func(ctx context.Context, settings models.PLCConnectionSettings) (services.Feed, error) {
		topic := settings.Topic
		if topic == "" {
			topic = DefaultMQTTTopic
		}

		clientID := cfg.ClientID
		if clientID == "" {
			clientID = "plcvisualizer-" + uuid.NewString()[:8]
		}

		var feed *Feed
		opts := mqtt.NewClientOptions().
			AddBroker(MQTTBroker(settings)).
			SetClientID(clientID).
			SetUsername(cfg.Username).
			SetPassword(cfg.Password).
			SetConnectTimeout(dialTimeout).
			SetAutoReconnect(false).
			SetCleanSession(true).
			SetConnectionLostHandler(func(_ mqtt.Client, err error) {
				logger.Warn("MQTT connection lost", zap.Error(err))
				feed.End()
			})

		client := mqtt.NewClient(opts)
		feed = NewFeed("mqtt", func() error {
			client.Disconnect(250)
			return nil
		}, logger, collector)

		if err := waitToken(ctx, client.Connect()); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", MQTTBroker(settings), err)
		}

		handler := func(_ mqtt.Client, msg mqtt.Message) {
			feed.Push(msg.Payload())
		}
		if err := waitToken(ctx, client.Subscribe(topic, 0, handler)); err != nil {
			client.Disconnect(0)
			return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}

		logger.Info("MQTT feed connected",
			zap.String("broker", MQTTBroker(settings)),
			zap.String("topic", topic),
		)
		return feed, nil
	}
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(dialTimeout + time.Second):
		return fmt.Errorf("timed out waiting for broker")
	}
}
