package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/pubsub"
	"github.com/orcidhub/orcidhub/internal/schema"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB owns the SQLite handle, runs migrations and hands out repositories.
type DB struct {
	conn   *sql.DB
	path   string
	events *pubsub.Broker[RecordChange]
}

// NewDB opens (creating if needed) the database at path and migrates it.
// An existing file is copied to path+".bak" before migrations run.
func NewDB(path string) (*DB, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		if err := backup(path); err != nil {
			return nil, err
		}
		dsn = "file:" + path
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// Each connection would otherwise see its own empty database
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := runMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info(log.CatDB, "Database ready", "path", path)
	return &DB{
		conn:   conn,
		path:   path,
		events: pubsub.NewBrokerWithBuffer[RecordChange](64),
	}, nil
}

func backup(path string) error {
	src, err := os.Open(path) // #nosec G304 -- configured database path
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".bak", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304 -- derived from configured path
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return dst.Close()
}

// Close closes the event broker and the handle.
func (db *DB) Close() error {
	db.events.Close()
	return db.conn.Close()
}

// Connection exposes the raw handle for collaborators sharing the file.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

// Path returns the database file path, or MemoryPath.
func (db *DB) Path() string {
	return db.path
}

// Events is the broker record changes are published on.
func (db *DB) Events() *pubsub.Broker[RecordChange] {
	return db.events
}

// Users returns the user repository.
func (db *DB) Users() Users {
	return newUserRepository(db.conn)
}

// Records returns the record repository. Writes are stamped with src.
func (db *DB) Records(reg *schema.Registry, src Source) Records {
	return newRecordRepository(db.conn, reg, src, db.Users(), db.events)
}

// Status returns the database clock, proving the connection is usable.
func (db *DB) Status(ctx context.Context) (time.Time, error) {
	var now int64
	if err := db.conn.QueryRowContext(ctx, `SELECT CAST(strftime('%s', 'now') AS INTEGER)`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to query database time: %w", err)
	}
	return time.Unix(now, 0).UTC(), nil
}
