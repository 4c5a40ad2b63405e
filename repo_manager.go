package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Supported SQL drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// RepositoryManager exposes the SQL backed repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	Accounts() Accounts
	Migrate(ctx context.Context, direction MigrationDirection) error
	DB() *bun.DB
	Close() error
}

type mngr struct {
	db       *bun.DB
	dialect  string
	accounts Accounts
}

// NewRepositoryManager wraps an open bun database. dialect is the goose
// dialect used for migrations.
func NewRepositoryManager(db *bun.DB, dialect string) RepositoryManager {
	return &mngr{
		db:       db,
		dialect:  dialect,
		accounts: NewAccountsRepository(db),
	}
}

// OpenRepositoryManager opens driver at dsn and returns a manager over it.
func OpenRepositoryManager(driver, dsn string) (RepositoryManager, error) {
	var (
		sqldb   *sql.DB
		db      *bun.DB
		dialect string
		err     error
	)

	switch driver {
	case DriverSQLite, "":
		sqldb, err = sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		// an in memory database lives as long as its only connection
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
		dialect = "sqlite3"
	case DriverPostgres:
		sqldb, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
		dialect = "postgres"
	default:
		return nil, goerrors.New("unsupported database driver: "+driver, goerrors.CategoryBadInput)
	}

	return NewRepositoryManager(db, dialect), nil
}

func (m *mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *mngr) Accounts() Accounts {
	return m.accounts
}

func (m *mngr) Migrate(ctx context.Context, direction MigrationDirection) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return Migrate(ctx, m.db.DB, m.dialect, direction)
	}
}

func (m *mngr) DB() *bun.DB {
	return m.db
}

func (m *mngr) Close() error {
	return m.db.Close()
}
