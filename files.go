package accounts

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "data/sql/migrations"

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// goose keeps its base FS and dialect in package state
var gooseMu sync.Mutex

// MigrationDirection selects what Migrate does
type MigrationDirection string

const (
	MigrateUp     MigrationDirection = "up"
	MigrateDown   MigrationDirection = "down"
	MigrateStatus MigrationDirection = "status"
)

// Migrate runs the embedded migrations against db. dialect is a goose
// dialect name: "sqlite3" or "postgres".
func Migrate(ctx context.Context, db *sql.DB, dialect string, direction MigrationDirection) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unsupported migration dialect")
	}

	var err error
	switch direction {
	case MigrateUp, "":
		err = goose.UpContext(ctx, db, migrationsDir)
	case MigrateDown:
		err = goose.DownContext(ctx, db, migrationsDir)
	case MigrateStatus:
		err = goose.StatusContext(ctx, db, migrationsDir)
	default:
		return goerrors.New(fmt.Sprintf("unknown migration direction %q", direction), goerrors.CategoryBadInput)
	}

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}

	return nil
}
