package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"plcvisualizer/models"
)

// Collector captures runtime telemetry.
//
// Hooks are called inline from the monitor and the hub, so implementations
// must not block.
type Collector interface {
	SetConnectionStatus(status models.ConnectionStatus)
	SetOffline(offline bool)
	IncReadings(protocol models.Protocol)
	IncAlerts(severity models.Status)
	SetClients(n int)
	SetPendingWrites(n int)
	IncDropped(kind string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) SetConnectionStatus(models.ConnectionStatus) {}
func (noopCollector) SetOffline(bool)                             {}
func (noopCollector) IncReadings(models.Protocol)                 {}
func (noopCollector) IncAlerts(models.Status)                     {}
func (noopCollector) SetClients(int)                              {}
func (noopCollector) SetPendingWrites(int)                        {}
func (noopCollector) IncDropped(string)                           {}

var connectionStatuses = []models.ConnectionStatus{
	models.ConnectionDisconnected,
	models.ConnectionConnecting,
	models.ConnectionConnected,
	models.ConnectionError,
}

// PrometheusCollector exposes telemetry via Prometheus.
type PrometheusCollector struct {
	connection *prometheus.GaugeVec
	offline    prometheus.Gauge
	readings   *prometheus.CounterVec
	alerts     *prometheus.CounterVec
	clients    prometheus.Gauge
	pending    prometheus.Gauge
	dropped    *prometheus.CounterVec
}

// NewPrometheusCollector registers the metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		connection: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plcvisualizer_connection_status",
			Help: "1 for the current live feed connection status, 0 otherwise.",
		}, []string{"status"}),
		offline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plcvisualizer_offline",
			Help: "1 while the backend is unreachable and the cached snapshot is served.",
		}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plcvisualizer_readings_total",
			Help: "Live values applied to parameters, per feed protocol.",
		}, []string{"protocol"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plcvisualizer_alerts_total",
			Help: "Alerts raised on status transitions, per severity.",
		}, []string{"severity"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plcvisualizer_websocket_clients",
			Help: "Connected dashboard WebSocket clients.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plcvisualizer_pending_writes",
			Help: "Parameter writes queued while offline.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plcvisualizer_dropped_messages_total",
			Help: "Messages dropped because a channel was full or a payload was malformed.",
		}, []string{"kind"}),
	}

	for _, col := range []prometheus.Collector{c.connection, c.offline, c.readings, c.alerts, c.clients, c.pending, c.dropped} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetConnectionStatus flips the status gauge to the current status.
func (c *PrometheusCollector) SetConnectionStatus(status models.ConnectionStatus) {
	for _, s := range connectionStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		c.connection.WithLabelValues(string(s)).Set(v)
	}
}

// SetOffline records the offline flag.
func (c *PrometheusCollector) SetOffline(offline bool) {
	if offline {
		c.offline.Set(1)
		return
	}
	c.offline.Set(0)
}

// IncReadings counts an applied live value.
func (c *PrometheusCollector) IncReadings(protocol models.Protocol) {
	c.readings.WithLabelValues(string(protocol)).Inc()
}

// IncAlerts counts a raised alert.
func (c *PrometheusCollector) IncAlerts(severity models.Status) {
	c.alerts.WithLabelValues(string(severity)).Inc()
}

// SetClients updates the WebSocket client gauge.
func (c *PrometheusCollector) SetClients(n int) {
	c.clients.Set(float64(n))
}

// SetPendingWrites updates the offline queue gauge.
func (c *PrometheusCollector) SetPendingWrites(n int) {
	c.pending.Set(float64(n))
}

// IncDropped counts a dropped message.
func (c *PrometheusCollector) IncDropped(kind string) {
	c.dropped.WithLabelValues(kind).Inc()
}
