package transcript

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// LatestMigrationVersion is the newest schema version shipped in migrations/.
//
// NOTE: This MUST be updated when a new migration is added.
const LatestMigrationVersion uint = 2

// ErrMigrationDowngrade is returned when the database is ahead of this binary.
var ErrMigrationDowngrade = errors.New("database downgrade detected")

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationLogger adapts slog to the migrate.Logger interface.
type migrationLogger struct {
	log *slog.Logger
}

func (m *migrationLogger) Printf(format string, v ...any) {
	format = strings.TrimRight(format, "\n")
	m.log.Info(fmt.Sprintf(format, v...))
}

func (m *migrationLogger) Verbose() bool { return false }

func newMigrate(databaseURL string) (*migrate.Migrate, *sql.DB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migration driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migration init: %w", err)
	}
	return m, db, nil
}

// Migrate applies every pending migration. It refuses to run against a dirty
// database or one migrated by a newer binary.
func Migrate(databaseURL string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	m, db, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("unable to determine current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty state at version %v, manual intervention required", version)
	}
	if version > LatestMigrationVersion {
		return fmt.Errorf("%w: db_version=%v, latest_migration_version=%v",
			ErrMigrationDowngrade, version, LatestMigrationVersion)
	}

	log.Info("applying migrations", "current_db_version", version, "latest_migration_version", LatestMigrationVersion)
	m.Log = &migrationLogger{log: log}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err = m.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Info("database version after migration", "current_db_version", version)
	return nil
}

// MigrationVersion reports the applied schema version; 0 means none.
func MigrationVersion(databaseURL string) (uint, bool, error) {
	m, db, err := newMigrate(databaseURL)
	if err != nil {
		return 0, false, err
	}
	defer db.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}
