package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/geoinstrumentos/catalog-backend/pkg/config"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps a pooled GORM connection.
type Client struct {
	conn *gorm.DB
	role string
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Clients pairs the owner connection used by admin actions with the
// restricted one used by public reads. The restricted role is subject to the
// row-level policies created by the migrations.
type Clients struct {
	Privileged *Client
	Restricted *Client
}

const (
	RolePrivileged = "privileged"
	RoleRestricted = "restricted"
)

// NewClients opens both pools. When no restricted DSN is configured the
// restricted pool points at the same database with the owner role.
func NewClients(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Clients, error) {
	privileged, err := open(ctx, cfg, RolePrivileged, logg)
	if err != nil {
		return nil, err
	}

	restricted, err := open(ctx, cfg.Restricted(), RoleRestricted, logg)
	if err != nil {
		_ = privileged.Close()
		return nil, err
	}

	return &Clients{Privileged: privileged, Restricted: restricted}, nil
}

// New boots a single privileged GORM client.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	return open(ctx, cfg, RolePrivileged, logg)
}

// FromConn wraps an already opened connection.
func FromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn, role: RolePrivileged}
}

func open(ctx context.Context, cfg config.DBConfig, role string, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	})

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s db connection: %w", role, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "db_role", role), "database connection established")
	}

	return &Client{conn: conn, role: role}, nil
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Role reports which pool the client belongs to.
func (c *Client) Role() string {
	return c.role
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks both pools.
func (c *Clients) Ping(ctx context.Context) error {
	return multierr.Combine(c.Privileged.Ping(ctx), c.Restricted.Ping(ctx))
}

// Close closes both pools.
func (c *Clients) Close() error {
	return multierr.Combine(c.Privileged.Close(), c.Restricted.Close())
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
