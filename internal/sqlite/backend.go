// Package sqlite implements the relational inventory backend on an embedded
// SQLite database file.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cs121/verwaltung-db/pkg/types"
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Backend implements types.Repository on SQLite.
type Backend struct {
	mu     sync.RWMutex
	open   bool
	config types.Config
	log    *zap.Logger
	db     *sqlx.DB
}

var _ types.Repository = (*Backend)(nil)

// NewBackend creates a backend for config. Nothing is opened until
// Initialize is called. A nil logger discards all output.
func NewBackend(config types.Config, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		config: config,
		log:    log.Named("sqlite"),
	}
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.config.DBPath()
}

// Initialize opens or creates the database file, creates missing tables,
// migrates an outdated items table and seeds the object type registry.
// Calling it again on an open backend is a no-op.
func (b *Backend) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return nil
	}
	path := b.Path()
	if err := b.openLocked(path); err != nil {
		if b.db != nil {
			b.db.Close()
			b.db = nil
		}
		return &types.StorageError{Backend: types.BackendSQLite, Path: path, Err: err}
	}
	b.open = true
	b.log.Debug("database opened", zap.String("path", path))
	return nil
}

func (b *Backend) openLocked(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sqlx.Open(driverName, dsn(path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps the pragmas and serializes writers.
	db.SetMaxOpenConns(1)
	b.db = db

	if err := db.Ping(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	for _, stmt := range schemaDDL() {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	migrated, rows, err := migrate(db, b.log)
	if err != nil {
		return fmt.Errorf("migrating items: %w", err)
	}
	if migrated {
		b.log.Info("items table migrated", zap.String("path", path), zap.Int("rows", rows))
	}
	for _, name := range b.config.ObjectTypes {
		if err := registerObjectType(db, name); err != nil {
			return fmt.Errorf("seeding object types: %w", err)
		}
	}
	return nil
}

func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close releases the database handle. Close is idempotent; after it every
// operation returns ErrNotInitialized until Initialize is called again.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	db := b.db
	b.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

func (b *Backend) checkOpen() error {
	if !b.open {
		return types.ErrNotInitialized
	}
	return nil
}
