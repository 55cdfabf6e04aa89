package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Migrator applies the SQL files under a migrations directory.
type Migrator struct {
	db *sql.DB
	m  *migrate.Migrate
}

// NewMigrator opens a dedicated database/sql connection for golang-migrate.
func NewMigrator(dsn, dir string) (*Migrator, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration db: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return &Migrator{db: db, m: m}, nil
}

// Up applies all pending migrations. It reports false when nothing changed.
func (g *Migrator) Up() (bool, error) {
	return changed(g.m.Up())
}

// Down rolls back steps migrations.
func (g *Migrator) Down(steps int) (bool, error) {
	if steps <= 0 {
		steps = 1
	}
	return changed(g.m.Steps(-steps))
}

// Version returns the applied version and whether the schema is dirty.
func (g *Migrator) Version() (uint, bool, error) {
	v, dirty, err := g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the source and database handles.
func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	return errors.Join(srcErr, dbErr)
}

func changed(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
