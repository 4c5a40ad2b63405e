package accounts

import (
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUIDTokenIssuer issues random v4 UUID strings. The same generator serves
// confirmation and reset tokens.
type UUIDTokenIssuer struct{}

// NewToken returns a fresh random token
func (UUIDTokenIssuer) NewToken() string {
	return uuid.NewString()
}

// newAccountID returns the id for a new account. With useHashid the id is
// derived from the email so the same address always maps to the same id.
func newAccountID(email string, useHashid bool) uuid.UUID {
	if useHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			return id
		}
	}
	return uuid.New()
}
