// Package database owns the sqlite connection and schema migrations for the
// ticket store. The checkpoint protocol requires every multi-row write to be
// atomic, so callers go through WithTransaction rather than holding raw
// transactions.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Config carries connection settings for the sqlite file.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB is the shared connection handle. It embeds *sql.DB so repositories can
// run plain queries directly.
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// New opens the sqlite file and verifies the connection. WAL journaling is
// enabled so checkpoint writes do not block concurrent ticket reads, with a
// busy timeout covering writer contention.
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}

	logger.Info("Ticket database ready", zap.String("path", cfg.Path))
	return &DB{DB: conn, logger: logger}, nil
}

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (db *DB) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Transaction rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	db.logger.Info("Closing ticket database")
	return db.DB.Close()
}
