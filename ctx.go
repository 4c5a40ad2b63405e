package accounts

import (
	"context"

	"github.com/goliatone/go-router"
)

// AccountLocalsKey is the router locals key holding the current account
const AccountLocalsKey = "current_account"

var accountCtxKey = &contextKey{"account"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the Account in the given context
func WithContext(r context.Context, account *Account) context.Context {
	return context.WithValue(r, accountCtxKey, account)
}

// FromContext finds the account from the context.
func FromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok && raw != nil
}

// WithClaimsContext sets the session claims in the given context
func WithClaimsContext(r context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the session claims from the standard context
func GetClaims(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok && raw != nil
}

// CurrentAccount returns the account the session middleware attached to
// the request.
func CurrentAccount(ctx router.Context) (*Account, bool) {
	if raw, ok := ctx.Locals(AccountLocalsKey).(*Account); ok && raw != nil {
		return raw, true
	}
	return FromContext(ctx.Context())
}
