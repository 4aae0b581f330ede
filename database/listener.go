package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Listen subscribes to a NOTIFY channel and calls onNotify for every
// notification until ctx is done. A reconnect of the underlying listener
// also calls onNotify since notifications may have been missed meanwhile.
func Listen(ctx context.Context, databaseURL, channel string, onNotify func(), logger *zap.Logger) error {
	listener := pq.NewListener(databaseURL, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Database listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})

	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", channel, classify(err))
	}
	logger.Info("Listening for parameter changes", zap.String("channel", channel))

	go func() {
		defer listener.Close()

		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				if n != nil {
					logger.Debug("Change notification", zap.String("channel", n.Channel), zap.String("payload", n.Extra))
				}
				onNotify()
			case <-ping.C:
				go func() {
					if err := listener.Ping(); err != nil {
						logger.Warn("Database listener ping failed", zap.Error(err))
					}
				}()
			}
		}
	}()

	return nil
}
