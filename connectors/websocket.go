package connectors

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"plcvisualizer/metrics"
	"plcvisualizer/models"
	"plcvisualizer/services"
)

const (
	dialTimeout  = 10 * time.Second
	maxFrameSize = 64 * 1024
)

// WebSocketURL builds the gateway address. A topic starting with "/" is
// used as the request path.
func WebSocketURL(settings models.PLCConnectionSettings) string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(settings.IP, strconv.Itoa(settings.Port)),
		Path:   "/",
	}
	if strings.HasPrefix(settings.Topic, "/") {
		u.Path = settings.Topic
	}
	return u.String()
}

// WebSocketOpener dials a PLC gateway that pushes JSON value updates
func WebSocketOpener(logger *zap.Logger, collector metrics.Collector) services.FeedOpener {
	return func(ctx context.Context, settings models.PLCConnectionSettings) (services.Feed, error) {
		addr := WebSocketURL(settings)

		dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
		conn, _, err := dialer.DialContext(ctx, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
		}
		conn.SetReadLimit(maxFrameSize)

		feed := NewFeed("websocket", conn.Close, logger, collector)
		go readFrames(conn, feed, logger)

		logger.Info("WebSocket feed connected", zap.String("url", addr))
		return feed, nil
	}
}

func readFrames(conn *websocket.Conn, feed *Feed, logger *zap.Logger) {
	defer feed.End()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket feed closed unexpectedly", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		feed.Push(payload)
	}
}
