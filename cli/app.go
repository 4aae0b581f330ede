package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"plcvisualizer/config"
	"plcvisualizer/database"
	"plcvisualizer/hosted"
	"plcvisualizer/logger"
	"plcvisualizer/services"
)

// app is the configuration and storage shared by every subcommand
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	backend services.Backend
	auth    services.Authenticator
	users   services.UserAdmin
	db      *database.DB
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	lg, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Service)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, lg, nil
}

// openApp loads configuration and connects the selected backend
func openApp(ctx context.Context) (*app, error) {
	cfg, lg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: lg}
	switch cfg.Backend {
	case config.BackendHosted:
		client := hosted.New(cfg.Hosted, lg)
		a.backend = client
		a.auth = client
		a.users = client
		lg.Info("Using hosted backend", zap.String("url", cfg.Hosted.URL))
	default:
		db, err := database.New(cfg.GetDatabaseURL(), lg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		auth := services.NewAuthService(db, cfg.Server.SessionTTL, lg)
		a.db = db
		a.backend = db
		a.auth = auth
		a.users = auth
		lg.Info("Database connection established",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)
	}
	return a, nil
}

func (a *app) close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("Failed to close backend", zap.Error(err))
	}
	_ = a.logger.Sync()
}
