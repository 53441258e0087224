package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/templates"
)

const migrationsTable = "schema_migrations"

// migrationDriver adapts an open *sql.DB to golang-migrate. The upstream
// sqlite drivers bind their own cgo or modernc engines; this one reuses
// the ncruces connection the store already holds.
type migrationDriver struct {
	db     *sql.DB
	locked atomic.Bool
}

var _ database.Driver = (*migrationDriver)(nil)

func newMigrationDriver(db *sql.DB) (*migrationDriver, error) {
	d := &migrationDriver{db: db}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (version INTEGER NOT NULL, dirty INTEGER NOT NULL)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	return d, nil
}

// Open is unsupported; the driver is always built from an existing handle.
func (d *migrationDriver) Open(string) (database.Driver, error) {
	return nil, errors.New("open by url is not supported")
}

// Close leaves the shared handle open; DB.Close owns it.
func (d *migrationDriver) Close() error {
	return nil
}

func (d *migrationDriver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *migrationDriver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

func (d *migrationDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return fmt.Errorf("failed to read migration: %w", err)
	}
	if _, err := d.db.Exec(string(body)); err != nil {
		return fmt.Errorf("failed to run migration: %w", err)
	}
	return nil
}

func (d *migrationDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM ` + migrationsTable); err != nil {
		return fmt.Errorf("failed to clear version: %w", err)
	}
	// NilVersion with a clean state means "no migrations applied"
	if version >= 0 || dirty {
		if _, err := tx.Exec(`INSERT INTO `+migrationsTable+` (version, dirty) VALUES (?, ?)`, version, dirty); err != nil {
			return fmt.Errorf("failed to set version: %w", err)
		}
	}
	return tx.Commit()
}

func (d *migrationDriver) Version() (int, bool, error) {
	var version int
	var dirty bool
	err := d.db.QueryRow(`SELECT version, dirty FROM ` + migrationsTable + ` LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return database.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read version: %w", err)
	}
	return version, dirty, nil
}

func (d *migrationDriver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := d.db.Exec(`DROP TABLE IF EXISTS "` + t + `"`); err != nil {
			return fmt.Errorf("failed to drop %s: %w", t, err)
		}
	}
	return nil
}

// runMigrations applies every pending embedded migration.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(templates.MigrationsFS(), ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	drv, err := newMigrationDriver(db)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, _, _ := drv.Version()
	log.Debug(log.CatDB, "Migrations applied", "version", version)
	return nil
}
