package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is satisfied by glog.Logger and *slog.Logger. Arguments after the
// message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds account service options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	// GetTokenExpiration session lifetime in hours
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	// GetTokenTTL lifetime of confirm and reset tokens, zero never expires
	GetTokenTTL() time.Duration
	GetUseHashid() bool
}

// CredentialStore persists accounts. Lookups that match nothing return
// ErrRecordNotFound and writes rejected by a unique index return
// ErrDuplicateRecord.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByToken(ctx context.Context, token string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	Create(ctx context.Context, account *Account) (*Account, error)
	// Save writes every mutable column of account, including empty ones.
	Save(ctx context.Context, account *Account) (*Account, error)
	// ConsumeToken writes account like Save but only while the stored token
	// still equals token. A token already consumed or replaced reports
	// ErrRecordNotFound.
	ConsumeToken(ctx context.Context, account *Account, token string) (*Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, profile Profile) (*Account, error)
}

// TokenIssuer generates opaque single use tokens.
type TokenIssuer interface {
	NewToken() string
}

// SessionIssuer signs bearer credentials for authenticated accounts.
type SessionIssuer interface {
	Issue(account *Account) (string, error)
}

// TokenIssuerFunc adapts a function to TokenIssuer.
type TokenIssuerFunc func() string

// NewToken calls f.
func (f TokenIssuerFunc) NewToken() string {
	return f()
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] ACCOUNTS " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] ACCOUNTS " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] ACCOUNTS " + format(msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] ACCOUNTS " + format(msg, args...))
}

func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}
