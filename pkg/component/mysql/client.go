// Package mysql wraps GORM with connection pooling and health checks.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	mysqlopts "github.com/kart-io/docseek/pkg/options/mysql"
)

// Client wraps a GORM database handle.
type Client struct {
	db   *gorm.DB
	opts *mysqlopts.Options
}

// New creates a new MySQL client with a background context.
func New(opts *mysqlopts.Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext creates a new MySQL client, configures the connection pool
// and verifies connectivity before returning.
func NewWithContext(ctx context.Context, opts *mysqlopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("mysql options is nil")
	}

	dsn := BuildDSN(opts)

	logLevel := gormlogger.Silent
	switch opts.LogLevel {
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	case 4:
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(logLevel, 200*time.Millisecond, true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return &Client{
		db:   db,
		opts: opts,
	}, nil
}

// Name returns the component name.
func (c *Client) Name() string {
	return "mysql"
}

// DB returns the underlying GORM handle.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// SqlDB returns the underlying sql.DB handle.
func (c *Client) SqlDB() (*sql.DB, error) {
	return c.db.DB()
}

// Ping verifies the database connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks connectivity and connection pool state.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	if stats.MaxOpenConnections > 0 && stats.OpenConnections > stats.MaxOpenConnections {
		return fmt.Errorf("connection pool exceeded: open=%d, max=%d",
			stats.OpenConnections, stats.MaxOpenConnections)
	}
	if stats.WaitCount > 0 && stats.WaitDuration > 5*time.Second {
		return fmt.Errorf("high connection wait time: count=%d, duration=%v",
			stats.WaitCount, stats.WaitDuration)
	}

	return nil
}
