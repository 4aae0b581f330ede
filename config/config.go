package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted in BACKEND
const (
	BackendPostgres = "postgres"
	BackendHosted   = "hosted"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Backend  string
	Hosted   HostedConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	MQTT     MQTTConfig
	Monitor  MonitorConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string
	AllowOrigins []string
	SessionTTL   time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// HostedConfig holds the hosted backend-as-a-service endpoint
type HostedConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// RedisConfig holds the offline cache connection
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers    string
	GroupID    string
	Topics     []string
	AutoOffset string
}

// BrokerList splits the comma separated broker string
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// MQTTConfig holds MQTT client credentials used by the mqtt feed
type MQTTConfig struct {
	ClientID string
	Username string
	Password string
}

// MonitorConfig tunes the connection monitor
type MonitorConfig struct {
	DebounceDelay time.Duration
	SyncInterval  time.Duration
	FlushInterval time.Duration
	PruneInterval time.Duration
	SimulatorSeed int64
	// max step per tick as a fraction of the alarm span; 0 keeps the default
	SimulatorVariation float64
	StatsInterval      time.Duration
	NotifyChannel      string
	HistoryBatchSize   int
}

// LoggingConfig selects the zap logger flavour
type LoggingConfig struct {
	Level   string
	Format  string
	Service string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	seed, err := strconv.ParseInt(getEnvOrDefault("SIMULATOR_SEED", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATOR_SEED: %w", err)
	}

	variation, err := strconv.ParseFloat(getEnvOrDefault("SIMULATOR_VARIATION", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATOR_VARIATION: %w", err)
	}

	batch, err := strconv.Atoi(getEnvOrDefault("HISTORY_BATCH_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_BATCH_SIZE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("SERVER_PORT", "8080"),
			AllowOrigins: []string{
				getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
				"http://localhost:3000",
			},
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     dbPort,
			Name:     getEnvOrDefault("DB_NAME", "plcvisualizer"),
			User:     getEnvOrDefault("DB_USER", "plcuser"),
			Password: getEnvOrDefault("DB_PASSWORD", "plcpass"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		Backend: strings.ToLower(getEnvOrDefault("BACKEND", BackendPostgres)),
		Hosted: HostedConfig{
			URL:    getEnvOrDefault("HOSTED_URL", ""),
			APIKey: getEnvOrDefault("HOSTED_API_KEY", ""),
		},
		Redis: RedisConfig{
			Addr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:  getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:        redisDB,
			KeyPrefix: getEnvOrDefault("REDIS_KEY_PREFIX", "plcvisualizer:"),
		},
		Kafka: KafkaConfig{
			Brokers:    getEnvOrDefault("KAFKA_BROKERS", "localhost:9092"),
			GroupID:    getEnvOrDefault("KAFKA_GROUP_ID", "plcvisualizer-backend"),
			Topics:     []string{getEnvOrDefault("KAFKA_TOPIC", "plc.readings")},
			AutoOffset: getEnvOrDefault("KAFKA_AUTO_OFFSET", "latest"),
		},
		MQTT: MQTTConfig{
			ClientID: getEnvOrDefault("MQTT_CLIENT_ID", "plcvisualizer"),
			Username: getEnvOrDefault("MQTT_USERNAME", ""),
			Password: getEnvOrDefault("MQTT_PASSWORD", ""),
		},
		Monitor: MonitorConfig{
			SimulatorSeed:      seed,
			SimulatorVariation: variation,
			NotifyChannel:      getEnvOrDefault("DB_NOTIFY_CHANNEL", "parameters_changed"),
			HistoryBatchSize:   batch,
		},
		Logging: LoggingConfig{
			Level:   getEnvOrDefault("LOG_LEVEL", "info"),
			Format:  getEnvOrDefault("LOG_FORMAT", "json"),
			Service: getEnvOrDefault("SERVICE_NAME", "plcvisualizer"),
		},
	}

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"SESSION_TTL", "12h", &cfg.Server.SessionTTL},
		{"HOSTED_TIMEOUT", "10s", &cfg.Hosted.Timeout},
		{"DEBOUNCE_DELAY", "300ms", &cfg.Monitor.DebounceDelay},
		{"SYNC_INTERVAL", "10s", &cfg.Monitor.SyncInterval},
		{"HISTORY_FLUSH_INTERVAL", "5s", &cfg.Monitor.FlushInterval},
		{"HISTORY_PRUNE_INTERVAL", "1h", &cfg.Monitor.PruneInterval},
		{"STATS_INTERVAL", "30s", &cfg.Monitor.StatsInterval},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(getEnvOrDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.target = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPostgres:
	case BackendHosted:
		if c.Hosted.URL == "" {
			return fmt.Errorf("HOSTED_URL is required when BACKEND=%s", BackendHosted)
		}
	default:
		return fmt.Errorf("invalid BACKEND %q (want %s or %s)", c.Backend, BackendPostgres, BackendHosted)
	}
	if c.Monitor.HistoryBatchSize <= 0 {
		return fmt.Errorf("HISTORY_BATCH_SIZE must be positive")
	}
	if c.Monitor.SimulatorVariation < 0 || c.Monitor.SimulatorVariation > 1 {
		return fmt.Errorf("SIMULATOR_VARIATION must be between 0 and 1")
	}
	return nil
}

// GetDatabaseURL returns formatted database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
