package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"plcvisualizer/models"
)

//go:embed schema.sql
var schema string

// DB wraps the database connection
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// New creates a new database connection
func New(databaseURL string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", classify(err))
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return Wrap(db, logger), nil
}

// Wrap adapts an open *sql.DB, used by tests with sqlmock
func Wrap(db *sql.DB, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{DB: db, logger: logger}
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// Migrate creates tables, indexes and the change-notification trigger
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return wrap("migrate", err)
	}
	return nil
}

// wrap attaches the operation name and maps driver errors onto the model sentinels
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", op, classify(err))
}

func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08", pqErr.Code == "57P01", pqErr.Code == "57P02", pqErr.Code == "57P03":
			return fmt.Errorf("%w: %w", models.ErrUnavailable, err)
		case pqErr.Code.Name() == "unique_violation":
			return fmt.Errorf("%w: %s", models.ErrValidation, pqErr.Detail)
		case pqErr.Code.Class() == "23", pqErr.Code.Class() == "22":
			return fmt.Errorf("%w: %s", models.ErrValidation, pqErr.Message)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", models.ErrUnavailable, err)
	}
	return err
}
