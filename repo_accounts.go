package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// SaveAccountSQL writes every mutable column. The ORM update skips zero
// values so a cleared token or a false flag would never reach the table.
var SaveAccountSQL = `UPDATE "accounts"
SET
	"name" = ?,
	"email" = ?,
	"password_hash" = ?,
	"confirmed" = ?,
	"token" = ?,
	"token_issued_at" = ?,
	"phone" = ?,
	"website" = ?,
	"updated_at" = ?
WHERE
	"id" = ?
RETURNING *;`

// ConsumeTokenSQL is SaveAccountSQL guarded on the token being consumed, so
// two requests racing on the same token cannot both apply.
var ConsumeTokenSQL = `UPDATE "accounts"
SET
	"name" = ?,
	"email" = ?,
	"password_hash" = ?,
	"confirmed" = ?,
	"token" = ?,
	"token_issued_at" = ?,
	"phone" = ?,
	"website" = ?,
	"updated_at" = ?
WHERE
	"id" = ? AND "token" = ?
RETURNING *;`

// UpdateProfileSQL writes the profile columns only.
var UpdateProfileSQL = `UPDATE "accounts"
SET
	"name" = ?,
	"email" = ?,
	"phone" = ?,
	"website" = ?,
	"updated_at" = ?
WHERE
	"id" = ?
RETURNING *;`

// Accounts is the bun backed CredentialStore. The Tx variants run inside a
// caller provided transaction.
type Accounts interface {
	CredentialStore

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	FindByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	SaveTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	ConsumeTokenTx(ctx context.Context, tx bun.IDB, account *Account, token string) (*Account, error)
}

type accountsRepo struct {
	repo repository.Repository[*Account]
	db   *bun.DB
	now  func() time.Time
}

var _ Accounts = (*accountsRepo)(nil)

// NewAccountsRepository returns a CredentialStore over db
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accountsRepo{
		repo: repo,
		db:   db,
		now:  time.Now,
	}
}

func (r *accountsRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.FindByEmailTx(ctx, r.db, email)
}

func (r *accountsRepo) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return r.findBy(ctx, tx, "email", NormalizeEmail(email))
}

func (r *accountsRepo) FindByToken(ctx context.Context, token string) (*Account, error) {
	return r.FindByTokenTx(ctx, r.db, token)
}

func (r *accountsRepo) FindByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrRecordNotFound
	}
	return r.findBy(ctx, tx, "token", token)
}

func (r *accountsRepo) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	if id == uuid.Nil {
		return nil, ErrRecordNotFound
	}
	return r.findBy(ctx, r.db, "id", id)
}

func (r *accountsRepo) findBy(ctx context.Context, tx bun.IDB, column string, value any) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return record, nil
}

func (r *accountsRepo) Create(ctx context.Context, account *Account) (*Account, error) {
	return r.CreateTx(ctx, r.db, account)
}

func (r *accountsRepo) CreateTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	r.prepareDefaults(account)

	created, err := r.repo.CreateTx(ctx, tx, account)
	if err != nil {
		return nil, mapWriteError(err)
	}

	return created, nil
}

func (r *accountsRepo) Save(ctx context.Context, account *Account) (*Account, error) {
	return r.SaveTx(ctx, r.db, account)
}

func (r *accountsRepo) SaveTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	return r.write(ctx, tx, SaveAccountSQL, account)
}

func (r *accountsRepo) ConsumeToken(ctx context.Context, account *Account, token string) (*Account, error) {
	return r.ConsumeTokenTx(ctx, r.db, account, token)
}

func (r *accountsRepo) ConsumeTokenTx(ctx context.Context, tx bun.IDB, account *Account, token string) (*Account, error) {
	if token == "" {
		return nil, ErrRecordNotFound
	}
	return r.write(ctx, tx, ConsumeTokenSQL, account, token)
}

func (r *accountsRepo) write(ctx context.Context, tx bun.IDB, query string, account *Account, guards ...any) (*Account, error) {
	now := r.now()
	account.Email = NormalizeEmail(account.Email)

	args := []any{
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Confirmed,
		nullString(account.Token),
		account.TokenIssuedAt,
		account.Phone,
		account.Website,
		now,
		account.ID.String(),
	}
	args = append(args, guards...)

	res, err := r.repo.RawTx(ctx, tx, query, args...)
	if err != nil {
		return nil, mapWriteError(err)
	}

	if len(res) == 0 {
		return nil, ErrRecordNotFound
	}

	return res[0], nil
}

func (r *accountsRepo) UpdateProfile(ctx context.Context, id uuid.UUID, profile Profile) (*Account, error) {
	res, err := r.repo.RawTx(ctx, r.db, UpdateProfileSQL,
		profile.Name,
		NormalizeEmail(profile.Email),
		profile.Phone,
		profile.Website,
		r.now(),
		id.String(),
	)
	if err != nil {
		return nil, mapWriteError(err)
	}

	if len(res) == 0 {
		return nil, ErrRecordNotFound
	}

	return res[0], nil
}

func (r *accountsRepo) prepareDefaults(account *Account) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.Email = NormalizeEmail(account.Email)
	now := r.now()
	if account.CreatedAt == nil {
		account.CreatedAt = &now
	}
	if account.UpdatedAt == nil {
		account.UpdatedAt = &now
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapWriteError turns unique index violations into ErrDuplicateRecord.
func mapWriteError(err error) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateRecord, err)
	}
	return err
}

// IsUniqueViolation reports whether err was raised by a unique index in
// postgres or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") ||
			strings.Contains(msg, "duplicate key value violates unique constraint") {
			return true
		}
	}

	return false
}
