package mongostore

import (
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-accounts"
)

// accountDocument is the stored shape of an account. An empty token is
// omitted so the partial token index ignores it.
type accountDocument struct {
	ID            string     `bson:"_id"`
	Name          string     `bson:"name"`
	Email         string     `bson:"email"`
	PasswordHash  string     `bson:"password_hash"`
	Confirmed     bool       `bson:"confirmed"`
	Token         string     `bson:"token,omitempty"`
	TokenIssuedAt *time.Time `bson:"token_issued_at,omitempty"`
	Phone         string     `bson:"phone,omitempty"`
	Website       string     `bson:"website,omitempty"`
	CreatedAt     *time.Time `bson:"created_at,omitempty"`
	UpdatedAt     *time.Time `bson:"updated_at,omitempty"`
}

func toDocument(a *accounts.Account) *accountDocument {
	return &accountDocument{
		ID:            a.ID.String(),
		Name:          a.Name,
		Email:         accounts.NormalizeEmail(a.Email),
		PasswordHash:  a.PasswordHash,
		Confirmed:     a.Confirmed,
		Token:         a.Token,
		TokenIssuedAt: a.TokenIssuedAt,
		Phone:         a.Phone,
		Website:       a.Website,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func fromDocument(d *accountDocument) (*accounts.Account, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}

	return &accounts.Account{
		ID:            id,
		Name:          d.Name,
		Email:         d.Email,
		PasswordHash:  d.PasswordHash,
		Confirmed:     d.Confirmed,
		Token:         d.Token,
		TokenIssuedAt: d.TokenIssuedAt,
		Phone:         d.Phone,
		Website:       d.Website,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}
