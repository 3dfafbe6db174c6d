package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var sqliteMigrations embed.FS

// Migrator applies embedded SQL files to one database driver.
type Migrator struct {
	Source   fs.FS
	Dir      string
	Database string
	Driver   database.Driver
	// CloseDriver also closes the *sql.DB behind Driver; leave it false
	// when the caller keeps using that pool.
	CloseDriver bool
}

// Up migrates to the newest version. Being current already is not an error.
func (m Migrator) Up() error {
	src, err := iofs.New(m.Source, m.Dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	mig, err := migrate.NewWithInstance("iofs", src, m.Database, m.Driver)
	if err != nil {
		return fmt.Errorf("init %s migrator: %w", m.Database, err)
	}
	if m.CloseDriver {
		defer mig.Close()
	}
	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", m.Database, err)
	}
	return nil
}

// RunMigrations brings the SQLite schema at dbPath up to date on its own
// connection.
func RunMigrations(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migrate driver: %w", err)
	}
	return Migrator{
		Source:      sqliteMigrations,
		Dir:         "migrations",
		Database:    "sqlite",
		Driver:      driver,
		CloseDriver: true,
	}.Up()
}
