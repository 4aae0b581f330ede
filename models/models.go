package models

import (
	"time"
)

// Status is the threshold health of a parameter
type Status string

const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusAlarm   Status = "alarm"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusNormal, StatusWarning, StatusAlarm:
		return true
	}
	return false
}

// Severity orders statuses so that alarm > warning > normal
func (s Status) Severity() int {
	switch s {
	case StatusWarning:
		return 1
	case StatusAlarm:
		return 2
	}
	return 0
}

// Range is an inclusive min/max pair
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Thresholds holds the warning and alarm bands of a parameter
type Thresholds struct {
	Warning Range `json:"warning"`
	Alarm   Range `json:"alarm"`
}

// Parameter represents a monitored process parameter
type Parameter struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Unit        string     `json:"unit" db:"unit"`
	Value       float64    `json:"value" db:"value"`
	Status      Status     `json:"status" db:"status"`
	Thresholds  Thresholds `json:"thresholds" db:"thresholds"`
	Timestamp   time.Time  `json:"timestamp" db:"timestamp"`
	Category    string     `json:"category" db:"category"`
}

// Alert represents a threshold alert raised for a parameter
type Alert struct {
	ID             string     `json:"id" db:"id"`
	ParameterID    string     `json:"parameter_id" db:"parameter_id"`
	ParameterName  string     `json:"parameter_name" db:"parameter_name"`
	Value          float64    `json:"value" db:"value"`
	Threshold      float64    `json:"threshold" db:"threshold"`
	Severity       Status     `json:"severity" db:"severity"`
	Message        string     `json:"message" db:"message"`
	Acknowledged   bool       `json:"acknowledged" db:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledged_by" db:"acknowledged_by"`
	AcknowledgedAt *time.Time `json:"acknowledged_at" db:"acknowledged_at"`
	Notified       bool       `json:"notified" db:"notified"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// AlertFilter narrows alert listings
type AlertFilter struct {
	UnacknowledgedOnly bool
	ParameterID        string
	Limit              int
}

// Reading is a single historical sample of a parameter
type Reading struct {
	ParameterID string    `json:"parameter_id" db:"parameter_id"`
	Value       float64   `json:"value" db:"value"`
	Status      Status    `json:"status" db:"status"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
}

// Protocol selects the live feed used by the connection monitor
type Protocol string

const (
	ProtocolSimulated Protocol = "simulated"
	ProtocolWebSocket Protocol = "websocket"
	ProtocolMQTT      Protocol = "mqtt"
	ProtocolKafka     Protocol = "kafka"
)

// PLCConnectionSettings describes where live values come from
type PLCConnectionSettings struct {
	IP               string   `json:"ip"`
	Port             int      `json:"port"`
	Protocol         Protocol `json:"protocol"`
	Topic            string   `json:"topic,omitempty"`
	AutoReconnect    bool     `json:"auto_reconnect"`
	ReconnectDelayMs int      `json:"reconnect_delay_ms"`
	UpdateIntervalMs int      `json:"update_interval_ms"`
}

// ReconnectDelay returns the configured reconnect delay
func (s PLCConnectionSettings) ReconnectDelay() time.Duration {
	if s.ReconnectDelayMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ReconnectDelayMs) * time.Millisecond
}

// UpdateInterval returns the simulated feed tick interval
func (s PLCConnectionSettings) UpdateInterval() time.Duration {
	if s.UpdateIntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(s.UpdateIntervalMs) * time.Millisecond
}

// DefaultConnectionSettings returns the settings used before an admin saves any
func DefaultConnectionSettings() PLCConnectionSettings {
	return PLCConnectionSettings{
		IP:               "192.168.1.100",
		Port:             502,
		Protocol:         ProtocolSimulated,
		AutoReconnect:    true,
		ReconnectDelayMs: 5000,
		UpdateIntervalMs: 2000,
	}
}

// CollectionPolicy controls which readings are written to history
type CollectionPolicy struct {
	Enabled          bool   `json:"enabled"`
	SampleIntervalMs int    `json:"sample_interval_ms"`
	RetentionDays    int    `json:"retention_days"`
	Filter           string `json:"filter"`
}

// DefaultCollectionPolicy records every reading at most once per 5 seconds for 30 days
func DefaultCollectionPolicy() CollectionPolicy {
	return CollectionPolicy{
		Enabled:          true,
		SampleIntervalMs: 5000,
		RetentionDays:    30,
	}
}

// Role is a user role
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// UserProfile represents an authenticated user
type UserProfile struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Session is an issued login session
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserProfile `json:"user"`
}

// ConnectionStatus is the live feed state
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionError        ConnectionStatus = "error"
)

// ConnectionState is what the dashboard shows next to the parameter list
type ConnectionState struct {
	Status        ConnectionStatus `json:"status"`
	Protocol      Protocol         `json:"protocol"`
	Offline       bool             `json:"offline"`
	PendingWrites int              `json:"pending_writes"`
	LastError     string           `json:"last_error,omitempty"`
	LastUpdate    time.Time        `json:"last_update"`
}

// ValueUpdate is an inbound live value from a feed
type ValueUpdate struct {
	ParameterID string    `json:"parameter_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Value       float64   `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
}

// WebSocketMessage represents a message sent to WebSocket clients
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
