package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"plcvisualizer/metrics"
	"plcvisualizer/models"
	"plcvisualizer/services"
)

// Message types pushed to dashboards
const (
	TypeConnection      = "connection"
	TypeParameters      = "parameters"
	TypeParameterUpdate = "parameter_update"
	TypeAlert           = "alert"
	TypeStatus          = "status"
	TypeStats           = "stats"
	TypePong            = "pong"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
)

var _ services.Broadcaster = (*Hub)(nil)

type outbound struct {
	kind    string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex

	upgrader websocket.Upgrader
	snapshot func() services.Snapshot
	logger   *zap.Logger
	metrics  metrics.Collector
}

// Client represents a websocket client connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	subscribed map[string]bool // message types; empty means everything
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub. An empty allowedOrigins list or a "*"
// entry accepts any origin; requests without an Origin header are always
// accepted.
func NewHub(allowedOrigins []string, logger *zap.Logger, collector metrics.Collector) *Hub {
	if collector == nil {
		collector = metrics.Noop()
	}
	h := &Hub{
		broadcast:  make(chan outbound, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger,
		metrics:    collector,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     originChecker(allowedOrigins),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// SetSnapshotSource sets where new clients get their initial state from
func (h *Hub) SetSnapshotSource(fn func() services.Snapshot) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.snapshot = fn
}

// Run starts the hub and returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			h.metrics.SetClients(0)
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			snapshot := h.snapshot
			h.mutex.Unlock()
			h.metrics.SetClients(count)
			h.logger.Info("Client registered", zap.String("client_id", client.id), zap.Int("total_clients", count))

			h.greet(client, snapshot)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("Client unregistered", zap.String("client_id", client.id), zap.Int("total_clients", len(h.clients)))
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.metrics.SetClients(count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if !client.wants(message.kind) {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client send buffer full, disconnecting", zap.String("client_id", client.id))
				}
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.metrics.SetClients(count)
		}
	}
}

// greet sends the welcome message followed by the current parameter list
func (h *Hub) greet(client *Client, snapshot func() services.Snapshot) {
	welcome := map[string]interface{}{"status": "connected", "client_id": client.id}
	var params []models.Parameter
	if snapshot != nil {
		s := snapshot()
		welcome["connection"] = s.Connection
		params = s.Parameters
	}
	if params == nil {
		params = []models.Parameter{}
	}

	for _, msg := range []models.WebSocketMessage{
		{Type: TypeConnection, Data: welcome, Timestamp: time.Now()},
		{Type: TypeParameters, Data: params, Timestamp: time.Now()},
	} {
		b, err := json.Marshal(msg)
		if err != nil {
			h.logger.Error("Failed to marshal greeting", zap.Error(err))
			continue
		}
		select {
		case client.send <- b:
		default:
			h.logger.Warn("Failed to greet client", zap.String("client_id", client.id))
		}
	}
}

func (h *Hub) publish(kind string, data interface{}) bool {
	message := models.WebSocketMessage{
		Type:      kind,
		Data:      data,
		Timestamp: time.Now(),
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal message", zap.String("type", kind), zap.Error(err))
		return false
	}

	select {
	case h.broadcast <- outbound{kind: kind, payload: msgBytes}:
		return true
	default:
		h.metrics.IncDropped("broadcast_" + kind)
		h.logger.Warn("Broadcast channel full, dropping message", zap.String("type", kind))
		return false
	}
}

// BroadcastParameters pushes the full parameter list
func (h *Hub) BroadcastParameters(params []models.Parameter) {
	if params == nil {
		params = []models.Parameter{}
	}
	h.publish(TypeParameters, params)
}

// BroadcastParameterUpdate pushes a single changed parameter
func (h *Hub) BroadcastParameterUpdate(param models.Parameter) {
	h.publish(TypeParameterUpdate, param)
}

// BroadcastAlert pushes an alert and reports whether any dashboard was
// connected to receive it
func (h *Hub) BroadcastAlert(alert *models.Alert) bool {
	if h.GetClientCount() == 0 {
		return false
	}
	return h.publish(TypeAlert, alert)
}

// BroadcastStatus pushes the connection state
func (h *Hub) BroadcastStatus(state models.ConnectionState) {
	h.publish(TypeStatus, state)
}

// BroadcastStats broadcasts system statistics to all connected clients
func (h *Hub) BroadcastStats(stats interface{}) {
	h.publish(TypeStats, stats)
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles WebSocket connections
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		id:         uuid.NewString(),
		subscribed: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket error", zap.String("client_id", c.id), zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("WebSocket write error", zap.String("client_id", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes messages received from the client
func (c *Client) handleMessage(message []byte) {
	var msg struct {
		Type   string          `json:"type"`
		Topics []string        `json:"topics"`
		Data   json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.Debug("Failed to unmarshal client message", zap.String("client_id", c.id), zap.Error(err))
		return
	}

	switch msg.Type {
	case "subscribe", "unsubscribe":
		// topics sit at the top level; older clients nest them under data
		topics := msg.Topics
		if topics == nil && len(msg.Data) > 0 {
			var nested struct {
				Topics []string `json:"topics"`
			}
			if err := json.Unmarshal(msg.Data, &nested); err != nil {
				c.hub.logger.Debug("Invalid subscription payload", zap.String("client_id", c.id), zap.Error(err))
				return
			}
			topics = nested.Topics
		}
		if msg.Type == "subscribe" {
			c.subscribe(topics)
		} else {
			c.unsubscribe(topics)
		}

	case "ping":
		pong := models.WebSocketMessage{
			Type:      TypePong,
			Data:      map[string]string{"client_id": c.id},
			Timestamp: time.Now(),
		}
		if pongBytes, err := json.Marshal(pong); err == nil {
			c.hub.mutex.RLock()
			_, registered := c.hub.clients[c]
			if registered {
				select {
				case c.send <- pongBytes:
				default:
					c.hub.logger.Warn("Failed to send pong", zap.String("client_id", c.id))
				}
			}
			c.hub.mutex.RUnlock()
		}

	default:
		c.hub.logger.Debug("Unknown message type", zap.String("client_id", c.id), zap.String("type", msg.Type))
	}
}

// subscribe limits the client to the given message types
func (c *Client) subscribe(topics []string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, topic := range topics {
		c.subscribed[topic] = true
	}
	c.hub.logger.Debug("Client subscribed", zap.String("client_id", c.id), zap.Strings("topics", topics))
}

// unsubscribe removes topics from client subscription
func (c *Client) unsubscribe(topics []string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, topic := range topics {
		delete(c.subscribed, topic)
	}
	c.hub.logger.Debug("Client unsubscribed", zap.String("client_id", c.id), zap.Strings("topics", topics))
}

// wants reports whether the client receives messages of kind. Connection
// state always goes through.
func (c *Client) wants(kind string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if len(c.subscribed) == 0 || kind == TypeStatus {
		return true
	}
	return c.subscribed[kind]
}
