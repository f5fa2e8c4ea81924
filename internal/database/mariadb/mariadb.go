// Package mariadb reads albums straight from a PhotoPrism MariaDB database.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/photo-pages/internal/config"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultReadTimeout = 30 * time.Second
)

// Pool is a connection pool on the PhotoPrism catalog. It only ever reads.
type Pool struct {
	db *sql.DB
}

// catalogDSN parses the configured DSN and fills in timeouts the catalog
// connection relies on. Values present in the DSN win.
func catalogDSN(cfg *config.PhotoPrismConfig) (*mysql.Config, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("PhotoPrism database DSN is required")
	}
	dsn, err := mysql.ParseDSN(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse PhotoPrism DSN: %w", err)
	}
	if dsn.Timeout == 0 {
		dsn.Timeout = defaultDialTimeout
	}
	if dsn.ReadTimeout == 0 {
		dsn.ReadTimeout = defaultReadTimeout
	}
	return dsn, nil
}

// NewPool connects to the PhotoPrism database described by cfg.
func NewPool(cfg *config.PhotoPrismConfig) (*Pool, error) {
	dsn, err := catalogDSN(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), dsn.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing PhotoPrism connection: %w", err)
	}
	return nil
}
