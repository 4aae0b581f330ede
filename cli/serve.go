package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plcvisualizer/cache"
	"plcvisualizer/connectors"
	"plcvisualizer/database"
	"plcvisualizer/handlers"
	"plcvisualizer/kafka"
	"plcvisualizer/metrics"
	"plcvisualizer/models"
	"plcvisualizer/services"
	"plcvisualizer/websocket"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, WebSocket hub and live feed",
		Long: `Starts the backend server.

Endpoints:
  GET  /health            Health check
  GET  /metrics           Prometheus metrics
  POST /api/auth/login    Exchange credentials for a session token
  GET  /api/parameters    Live parameter list (bearer token)
  WS   /ws                Real-time parameter, alert and status updates`,
		Example: `  plcvisualizer serve
  plcvisualizer serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if port != "" {
				a.cfg.Server.Port = port
			}
			return serve(ctx, a)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides SERVER_PORT)")

	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg, lg := a.cfg, a.logger
	lg.Info("Starting PLC Visualizer backend", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Backend))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewPrometheusCollector(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	redisClient := cache.NewRedisClient(cfg.Redis)
	offline := cache.New(redisClient, cfg.Redis.KeyPrefix, lg)
	defer offline.Close()
	if err := offline.Ping(ctx); err != nil {
		lg.Warn("Offline cache unreachable, continuing without it", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	// WebSocket hub
	hub := websocket.NewHub(cfg.Server.AllowOrigins, lg, collector)
	go hub.Run(ctx)
	lg.Info("WebSocket hub started")

	alerts := services.NewAlertService(a.backend, hub, collector, lg)
	recorder := services.NewHistoryRecorder(a.backend, cfg.Monitor.HistoryBatchSize, lg)
	if policy, err := a.backend.GetCollectionPolicy(ctx); err != nil {
		lg.Warn("Failed to load collection policy, using defaults", zap.Error(err))
	} else if err := recorder.SetPolicy(*policy); err != nil {
		lg.Warn("Stored collection policy is invalid, using defaults", zap.Error(err))
	}

	sim := services.NewSimulator(cfg.Monitor.SimulatorSeed)
	sim.SetVariation(cfg.Monitor.SimulatorVariation)

	monitor := services.NewMonitor(services.MonitorDeps{
		Store:       a.backend,
		Cache:       offline,
		Alerts:      alerts,
		History:     recorder,
		Broadcaster: hub,
		Metrics:     collector,
		Simulator:   sim,
		Logger:      lg,
	}, services.MonitorOptions{
		DebounceDelay: cfg.Monitor.DebounceDelay,
		SyncInterval:  cfg.Monitor.SyncInterval,
	})
	monitor.RegisterFeed(models.ProtocolWebSocket, connectors.WebSocketOpener(lg, collector))
	monitor.RegisterFeed(models.ProtocolMQTT, connectors.MQTTOpener(cfg.MQTT, lg, collector))
	monitor.RegisterFeed(models.ProtocolKafka, kafka.Opener(cfg.Kafka, lg, collector))
	hub.SetSnapshotSource(monitor.Snapshot)

	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}
	defer monitor.Stop()

	go recorder.Run(ctx, cfg.Monitor.FlushInterval, cfg.Monitor.PruneInterval)

	if a.db != nil {
		if err := database.Listen(ctx, cfg.GetDatabaseURL(), cfg.Monitor.NotifyChannel, monitor.NotifyChanged, lg); err != nil {
			lg.Warn("Change notifications disabled", zap.Error(err))
		}
		go pruneSessions(ctx, a.db, lg)
	}

	// Periodic statistics broadcast
	go func() {
		ticker := time.NewTicker(cfg.Monitor.StatsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hub.BroadcastStats(monitor.Stats())
			}
		}
	}()

	handler := handlers.New(handlers.Deps{
		Monitor:  monitor,
		Alerts:   alerts,
		Recorder: recorder,
		History:  a.backend,
		Policies: a.backend,
		Auth:     a.auth,
		Users:    a.users,
		Hub:      hub,
		Backend:  a.backend,
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:   lg,
	})

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	router.Use(func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	})

	handler.Register(router)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	lg.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("Server forced to shutdown", zap.Error(err))
	}
	lg.Info("Server stopped")
	return nil
}

func pruneSessions(ctx context.Context, db *database.DB, lg *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.PruneSessions(ctx)
			if err != nil {
				lg.Warn("Session prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("Pruned expired sessions", zap.Int64("deleted", n))
			}
		}
	}
}
