package accounts_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "pepe@example.com", accounts.NormalizeEmail("  Pepe@Example.COM "))
	assert.Equal(t, "", accounts.NormalizeEmail("   "))
}

func TestAccount_JSONHidesSecrets(t *testing.T) {
	account := &accounts.Account{
		ID:    uuid.New(),
		Name:  "Pepe",
		Email: "a@x.com",
	}
	require.NoError(t, account.SetPassword("secret1"))

	raw, err := json.Marshal(account)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, account.ID.String(), decoded["_id"])
	assert.Equal(t, "Pepe", decoded["nombre"])
	assert.Equal(t, false, decoded["confirmado"])
	assert.NotContains(t, decoded, "password_hash")
	assert.NotContains(t, decoded, "PasswordHash")
	assert.NotContains(t, decoded, "token")
	assert.NotContains(t, string(raw), account.PasswordHash)
}

func TestAccount_Profile(t *testing.T) {
	account := &accounts.Account{
		ID:           uuid.New(),
		Name:         "Pepe",
		Email:        "a@x.com",
		PasswordHash: "hash",
		Token:        "pending",
		Phone:        "+16502530000",
		Website:      "https://example.com",
	}

	raw, err := json.Marshal(account.Profile())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nombre":"Pepe","email":"a@x.com","telefono":"+16502530000","web":"https://example.com"}`, string(raw))
}

func TestAccount_HasPendingToken(t *testing.T) {
	var missing *accounts.Account
	assert.False(t, missing.HasPendingToken())
	assert.False(t, (&accounts.Account{}).HasPendingToken())
	assert.True(t, (&accounts.Account{Token: "t"}).HasPendingToken())
}
