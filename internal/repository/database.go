package repository

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // Required for file source
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // cgo-free SQLite driver
	"go.uber.org/zap"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// sqlx does not know the modernc driver name out of the box.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// NewDB opens a connection for the configured driver. Postgres is the
// production store; SQLite serves local development and tests.
func NewDB(driver, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// SQLite in-memory databases exist per connection.
		db.SetMaxOpenConns(1)
	}

	logger.Info("Successfully connected to the database", zap.String("driver", driver))
	return db, nil
}

// MigrateDB brings the schema up to date. Postgres migrations run through
// golang-migrate from the migrations directory; SQLite uses the inline schema.
func MigrateDB(db *sqlx.DB, logger *zap.Logger) error {
	switch db.DriverName() {
	case DriverPostgres:
		driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("couldn't get database instance for running migrations: %w", err)
		}

		m, err := migrate.NewWithDatabaseInstance("file://migrations", "tema_emotions", driver)
		if err != nil {
			return fmt.Errorf("couldn't create migrate instance: %w", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("couldn't run database migration: %w", err)
		}
	case DriverSQLite:
		if _, err := db.Exec(sqliteSchema); err != nil {
			return fmt.Errorf("couldn't apply sqlite schema: %w", err)
		}
	}

	logger.Info("Database migration was run successfully")
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	author TEXT NOT NULL,
	row_index INTEGER NOT NULL,
	message_id INTEGER NOT NULL,
	text TEXT NOT NULL,
	source TEXT NOT NULL,
	emotion TEXT NOT NULL,
	target TEXT NOT NULL DEFAULT '',
	urgent BOOLEAN NOT NULL DEFAULT 0,
	irrelevant BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	UNIQUE (author, row_index)
);

CREATE INDEX IF NOT EXISTS idx_results_author ON results(author);
`
