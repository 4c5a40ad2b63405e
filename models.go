package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"_id"`
	Name          string     `bun:"name,notnull" json:"nombre"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Confirmed     bool       `bun:"confirmed,notnull" json:"confirmado"`
	Token         string     `bun:"token,nullzero,unique" json:"token,omitempty"`
	TokenIssuedAt *time.Time `bun:"token_issued_at,nullzero" json:"-"`
	Phone         string     `bun:"phone" json:"telefono,omitempty"`
	Website       string     `bun:"website" json:"web,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SetPassword hashes plain and replaces the stored hash. It is the only way
// the password of an account changes.
func (a *Account) SetPassword(plain string) error {
	hash, err := HashPassword(plain)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// VerifyPassword reports whether plain matches the stored hash.
func (a *Account) VerifyPassword(plain string) bool {
	if a == nil || a.PasswordHash == "" {
		return false
	}
	return ComparePasswordAndHash(plain, a.PasswordHash) == nil
}

// HasPendingToken reports whether a confirmation or reset is outstanding.
func (a *Account) HasPendingToken() bool {
	return a != nil && a.Token != ""
}

// Profile returns the sanitized projection of the account.
func (a *Account) Profile() Profile {
	return Profile{
		Name:    a.Name,
		Email:   a.Email,
		Phone:   a.Phone,
		Website: a.Website,
	}
}

// SessionView returns the account as exposed to its own session. Credentials
// and token state stay out.
func (a *Account) SessionView() SessionAccount {
	return SessionAccount{ID: a.ID, Profile: a.Profile()}
}

// SessionAccount is the authenticated account returned by the profile endpoint.
type SessionAccount struct {
	ID uuid.UUID `json:"_id"`
	Profile
}

// Profile holds the mutable, public fields of an account.
type Profile struct {
	Name    string `json:"nombre"`
	Email   string `json:"email"`
	Phone   string `json:"telefono"`
	Website string `json:"web"`
}

// AuthenticatedAccount is the result of a successful login.
type AuthenticatedAccount struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"nombre"`
	Email string    `json:"email"`
	Token string    `json:"token"`
}

// NormalizeEmail is the policy applied to every email before it is stored
// or looked up. Emails compare case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
