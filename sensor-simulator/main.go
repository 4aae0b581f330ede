package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"plcvisualizer/config"
	"plcvisualizer/kafka"
	"plcvisualizer/logger"
	"plcvisualizer/models"
	"plcvisualizer/services"
)

// SensorSimulator random-walks the demo parameter set and publishes the
// readings to Kafka for the backend's kafka feed
type SensorSimulator struct {
	producer  *kafka.Producer
	walker    *services.Simulator
	rng       *rand.Rand
	params    []models.Parameter
	frequency time.Duration
	faultRate float64
	logger    *zap.Logger
}

// NewSensorSimulator creates a simulator publishing through producer
func NewSensorSimulator(producer *kafka.Producer, params []models.Parameter, frequency time.Duration, faultRate float64, seed int64, logger *zap.Logger) *SensorSimulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SensorSimulator{
		producer:  producer,
		walker:    services.NewSimulator(seed),
		rng:       rand.New(rand.NewSource(seed)),
		params:    params,
		frequency: frequency,
		faultRate: faultRate,
		logger:    logger,
	}
}

// generate advances every parameter one step. With faultRate probability a
// parameter jumps past its alarm band so alerts fire downstream.
func (s *SensorSimulator) generate(now time.Time) []models.ValueUpdate {
	updates := make([]models.ValueUpdate, 0, len(s.params))
	for i := range s.params {
		p := &s.params[i]
		value := s.walker.Next(*p)
		if s.rng.Float64() < s.faultRate {
			span := p.Thresholds.Alarm.Max - p.Thresholds.Alarm.Min
			value = p.Thresholds.Alarm.Max + span*0.05
			s.logger.Info("Injected fault", zap.String("parameter", p.Name), zap.Float64("value", value))
		}
		p.Value = value
		updates = append(updates, models.ValueUpdate{
			ParameterID: p.ID,
			Name:        p.Name,
			Value:       value,
			Timestamp:   now,
		})
	}
	return updates
}

func (s *SensorSimulator) publish(now time.Time) {
	if err := s.producer.Publish(s.generate(now)); err != nil {
		s.logger.Error("Error publishing readings", zap.Error(err))
	}
}

// Run publishes one batch right away and then one every tick until ctx is done
func (s *SensorSimulator) Run(ctx context.Context) {
	s.logger.Info("Starting sensor simulator",
		zap.Int("parameters", len(s.params)),
		zap.Duration("frequency", s.frequency),
	)

	ticker := time.NewTicker(s.frequency)
	defer ticker.Stop()

	s.publish(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.publish(now)
		}
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lg, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, "sensor-simulator")
	if err != nil {
		return err
	}
	defer lg.Sync()

	frequency, err := time.ParseDuration(getEnvOrDefault("SENSOR_FREQUENCY", "1s"))
	if err != nil {
		return fmt.Errorf("invalid SENSOR_FREQUENCY: %w", err)
	}
	faultRate, err := strconv.ParseFloat(getEnvOrDefault("SENSOR_FAULT_RATE", "0.02"), 64)
	if err != nil {
		return fmt.Errorf("invalid SENSOR_FAULT_RATE: %w", err)
	}

	// client id seen by the brokers
	cfg.Kafka.GroupID = "sensor-simulator"
	syncProducer, err := kafka.NewSyncProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	producer := kafka.NewProducer(syncProducer, cfg.Kafka.Topics[0], lg)
	defer producer.Close()

	lg.Info("Configuration",
		zap.Strings("brokers", cfg.Kafka.BrokerList()),
		zap.String("topic", cfg.Kafka.Topics[0]),
		zap.Float64("fault_rate", faultRate),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	simulator := NewSensorSimulator(producer, services.SampleParameters(), frequency, faultRate, cfg.Monitor.SimulatorSeed, lg)
	simulator.walker.SetVariation(cfg.Monitor.SimulatorVariation)
	simulator.Run(ctx)
	lg.Info("Sensor simulator stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Sensor simulator failed: %v", err)
	}
}
