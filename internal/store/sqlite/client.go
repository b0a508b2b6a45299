package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/cipherhq/ticketrack-sub010/internal/config"
	_ "modernc.org/sqlite"
)

// Client wraps the sqlite database handle
type Client struct {
	db     *sql.DB
	config *config.Store
	log    *zap.Logger
}

// NewClient opens the local sqlite database with the given configuration
func NewClient(ctx context.Context, config *config.Store, log *zap.Logger) (*Client, error) {
	log.Info("Opening local store",
		zap.String("path", config.Path),
		zap.Int("busy_timeout_ms", config.BusyTimeoutMs))

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)",
		config.Path, config.BusyTimeoutMs)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Error("Failed to open local store", zap.Error(err))
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	// The driver is pure Go; a single writer connection keeps sqlite happy
	// under WAL while reads multiplex over it.
	maxConns := config.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping local store", zap.Error(err))
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}

	log.Info("Local store opened successfully")

	return &Client{db: db, config: config, log: log}, nil
}

// DB returns the underlying database handle
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database handle
func (c *Client) Close() error {
	c.log.Info("Closing local store")
	if err := c.db.Close(); err != nil {
		c.log.Error("Error closing local store", zap.Error(err))
		return err
	}
	return nil
}
