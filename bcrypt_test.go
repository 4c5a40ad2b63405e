package accounts_test

import (
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := accounts.HashPassword(tt.password)

			if tt.wantErr {
				assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			err = accounts.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := accounts.HashPassword(password)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  error
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
		},
		{
			name:     "Wrong password",
			password: "wrongPassword",
			hash:     hash,
			wantErr:  accounts.ErrMismatchedHashAndPassword,
		},
		{
			name:     "Invalid hash",
			password: password,
			hash:     "invalidhash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := accounts.ComparePasswordAndHash(tt.password, tt.hash)

			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.hash != hash:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestAccountSetPasswordRehashes(t *testing.T) {
	account := &accounts.Account{}

	require.NoError(t, account.SetPassword("secret1"))
	first := account.PasswordHash
	assert.True(t, account.VerifyPassword("secret1"))

	require.NoError(t, account.SetPassword("secret1"))
	assert.NotEqual(t, first, account.PasswordHash, "bcrypt salts every hash")
	assert.True(t, account.VerifyPassword("secret1"))
	assert.False(t, account.VerifyPassword("secret2"))
}

func TestAccountSetPasswordRejectsEmpty(t *testing.T) {
	account := &accounts.Account{PasswordHash: "keep"}

	err := account.SetPassword("")
	assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
	assert.Equal(t, "keep", account.PasswordHash)
}

func TestVerifyPasswordWithoutHash(t *testing.T) {
	var nilAccount *accounts.Account
	assert.False(t, nilAccount.VerifyPassword("anything"))
	assert.False(t, (&accounts.Account{}).VerifyPassword(""))
}
