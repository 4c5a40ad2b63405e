package accounts_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

func TestRegister_CreatesUnconfirmedAccountWithToken(t *testing.T) {
	f := newFixture(t)

	account := f.register(t, "a@x.com", "secret1")

	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.False(t, account.Confirmed)
	assert.Equal(t, "token-001", account.Token)
	assert.Equal(t, accounts.StateUnconfirmedPendingConfirm, account.State())
	assert.NotEqual(t, "secret1", account.PasswordHash)
	assert.True(t, account.VerifyPassword("secret1"))

	sent := f.waitForNotifications()
	require.Len(t, sent, 1)
	assert.Equal(t, accounts.NotificationConfirmation, sent[0].Kind)
	assert.Equal(t, accounts.Notification{Email: "a@x.com", Name: "Pepe Rone", Token: "token-001"}, sent[0].Notification)

	assert.Equal(t, []accounts.ActivityEventType{accounts.ActivityEventRegistered}, f.sink.Types())
}

func TestRegister_NormalizesEmailAndPhone(t *testing.T) {
	f := newFixture(t)

	account, err := f.service.Register(context.Background(), accounts.RegisterAccountMessage{
		Name:     "  Pepe Rone ",
		Email:    " Pepe@Example.COM ",
		Password: "secret1",
		Phone:    "(650) 253-0000",
		Website:  "https://example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "Pepe Rone", account.Name)
	assert.Equal(t, "pepe@example.com", account.Email)
	assert.Equal(t, "+16502530000", account.Phone)
	assert.Equal(t, "https://example.com", account.Website)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)

	first := f.register(t, "a@x.com", "secret1")

	_, err := f.service.Register(context.Background(), accounts.RegisterAccountMessage{
		Name:     "Other",
		Email:    "A@X.com",
		Password: "another1",
	})
	require.Error(t, err)
	assert.True(t, accounts.IsKind(err, accounts.KindDuplicateEmail))
	assert.ErrorIs(t, err, accounts.ErrDuplicateEmail)

	stored, err := f.store.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, first.Token, stored.Token)
	assert.True(t, stored.VerifyPassword("secret1"))

	assert.Len(t, f.waitForNotifications(), 1)
}

func TestRegister_ValidationFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		msg  accounts.RegisterAccountMessage
	}{
		{
			name: "missing name",
			msg:  accounts.RegisterAccountMessage{Email: "a@x.com", Password: "secret1"},
		},
		{
			name: "invalid email",
			msg:  accounts.RegisterAccountMessage{Name: "Pepe", Email: "not-an-email", Password: "secret1"},
		},
		{
			name: "short password",
			msg:  accounts.RegisterAccountMessage{Name: "Pepe", Email: "a@x.com", Password: "123"},
		},
		{
			name: "invalid phone",
			msg:  accounts.RegisterAccountMessage{Name: "Pepe", Email: "a@x.com", Password: "secret1", Phone: "12"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Register(context.Background(), tt.msg)
			require.Error(t, err)
			assert.Equal(t, accounts.KindValidationFailed, accounts.KindOf(err))
		})
	}

	assert.Empty(t, f.waitForNotifications())
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	f := newFixture(t)

	const attempts = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Register(context.Background(), accounts.RegisterAccountMessage{
				Name:     "Pepe",
				Email:    "race@x.com",
				Password: "secret1",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case accounts.IsKind(err, accounts.KindDuplicateEmail):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, dupes)
}

func TestRegister_HashidAccountIDs(t *testing.T) {
	f := newFixture(t, accounts.WithHashidAccountIDs(true))

	account := f.register(t, "a@x.com", "secret1")

	other := newFixture(t, accounts.WithHashidAccountIDs(true))
	again := other.register(t, "a@x.com", "secret1")

	assert.Equal(t, account.ID, again.ID)
}

func TestRegister_HashidAfterEmailChange(t *testing.T) {
	f := newFixture(t, accounts.WithHashidAccountIDs(true))
	original := f.registerConfirmed(t, "a@x.com", "secret1")

	_, err := f.service.UpdateProfile(context.Background(), original.ID, accounts.UpdateProfileMessage{
		Name:  "Pepe Rone",
		Email: "moved@x.com",
	})
	require.NoError(t, err)

	again := f.register(t, "a@x.com", "secret1")
	assert.NotEqual(t, original.ID, again.ID)
	assert.Equal(t, "a@x.com", again.Email)

	moved, err := f.store.FindByID(context.Background(), original.ID)
	require.NoError(t, err)
	assert.Equal(t, "moved@x.com", moved.Email)
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "a@x.com", "secret1")

	require.NoError(t, f.service.Confirm(context.Background(), account.Token))

	stored, err := f.store.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
	assert.Empty(t, stored.Token)
	assert.Nil(t, stored.TokenIssuedAt)
	assert.Equal(t, accounts.StateConfirmedNoPendingReset, stored.State())

	err = f.service.Confirm(context.Background(), account.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, accounts.ErrInvalidToken)
}

func TestConfirm_UnknownAndEmptyToken(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"", "does-not-exist"} {
		err := f.service.Confirm(context.Background(), token)
		assert.True(t, accounts.IsKind(err, accounts.KindInvalidToken), "token %q", token)
	}
}

func TestConfirm_ExpiredToken(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	f := newFixture(t, accounts.WithClock(clock), accounts.WithTokenTTL(time.Hour))
	account := f.register(t, "a@x.com", "secret1")

	now = now.Add(2 * time.Hour)

	err := f.service.Confirm(context.Background(), account.Token)
	assert.ErrorIs(t, err, accounts.ErrInvalidToken)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)

	t.Run("not confirmed regardless of password", func(t *testing.T) {
		f.register(t, "pending@x.com", "secret1")

		for _, password := range []string{"secret1", "wrong-password"} {
			result, err := f.service.Authenticate(context.Background(), "pending@x.com", password)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, accounts.ErrNotConfirmed)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.service.Authenticate(context.Background(), "nobody@x.com", "secret1")
		assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
	})

	account := f.registerConfirmed(t, "a@x.com", "secret1")

	t.Run("wrong password", func(t *testing.T) {
		result, err := f.service.Authenticate(context.Background(), "a@x.com", "secret2")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, accounts.ErrWrongPassword)
	})

	t.Run("success", func(t *testing.T) {
		result, err := f.service.Authenticate(context.Background(), "A@x.com", "secret1")
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, account.ID, result.ID)
		assert.Equal(t, "Pepe Rone", result.Name)
		assert.Equal(t, "a@x.com", result.Email)
		require.NotEmpty(t, result.Token)

		claims, err := f.tokens.Validate(result.Token)
		require.NoError(t, err)
		assert.Equal(t, account.ID.String(), claims.AccountID())
	})

	assert.Contains(t, f.sink.Types(), accounts.ActivityEventLoginFailure)
	assert.Contains(t, f.sink.Types(), accounts.ActivityEventLoginSuccess)
}

func TestPasswordReset_SecondRequestInvalidatesFirst(t *testing.T) {
	f := newFixture(t)
	f.registerConfirmed(t, "a@x.com", "secret1")

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "a@x.com"))
	first, err := f.store.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, accounts.StateConfirmedPendingReset, first.State())

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "a@x.com"))
	second, err := f.store.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	assert.ErrorIs(t, f.service.ValidateResetToken(context.Background(), first.Token), accounts.ErrResetTokenInvalid)
	assert.ErrorIs(t, f.service.ApplyNewPassword(context.Background(), first.Token, "newsecret"), accounts.ErrResetTokenInvalid)

	require.NoError(t, f.service.ValidateResetToken(context.Background(), second.Token))
	// validation does not consume the token
	require.NoError(t, f.service.ValidateResetToken(context.Background(), second.Token))

	sent := f.waitForNotifications()
	require.Len(t, sent, 3)
	assert.Equal(t, accounts.NotificationPasswordReset, sent[2].Kind)
	assert.Equal(t, second.Token, sent[2].Notification.Token)
}

func TestPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.service.RequestPasswordReset(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestApplyNewPassword(t *testing.T) {
	f := newFixture(t)
	f.registerConfirmed(t, "a@x.com", "secret1")

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "a@x.com"))
	pending, err := f.store.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	t.Run("rejects short password", func(t *testing.T) {
		err := f.service.ApplyNewPassword(context.Background(), pending.Token, "123")
		assert.Equal(t, accounts.KindValidationFailed, accounts.KindOf(err))
	})

	require.NoError(t, f.service.ApplyNewPassword(context.Background(), pending.Token, "newsecret"))

	stored, err := f.store.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, stored.Token)
	assert.Equal(t, accounts.StateConfirmedNoPendingReset, stored.State())

	_, err = f.service.Authenticate(context.Background(), "a@x.com", "secret1")
	assert.ErrorIs(t, err, accounts.ErrWrongPassword)

	result, err := f.service.Authenticate(context.Background(), "a@x.com", "newsecret")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	err = f.service.ApplyNewPassword(context.Background(), pending.Token, "another1")
	assert.ErrorIs(t, err, accounts.ErrResetTokenInvalid)
	assert.True(t, accounts.IsKind(err, accounts.KindInvalidToken))
}

func TestApplyNewPassword_KeepsPendingAccountUnconfirmed(t *testing.T) {
	f := newFixture(t)
	account := f.register(t, "a@x.com", "secret1")

	require.NoError(t, f.service.ApplyNewPassword(context.Background(), account.Token, "newsecret"))

	stored, err := f.store.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.False(t, stored.Confirmed)
	assert.Empty(t, stored.Token)

	result, err := f.service.Authenticate(context.Background(), "a@x.com", "newsecret")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, accounts.ErrNotConfirmed)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	account := f.registerConfirmed(t, "a@x.com", "secret1")

	profile, err := f.service.Profile(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, account.ID, profile.ID)
	assert.Equal(t, accounts.Profile{Name: "Pepe Rone", Email: "a@x.com"}, profile.Profile)

	raw, err := json.Marshal(profile)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, account.ID.String(), fields["_id"])
	assert.Equal(t, "Pepe Rone", fields["nombre"])
	for _, hidden := range []string{"token", "password", "password_hash", "confirmado"} {
		assert.NotContains(t, fields, hidden)
	}

	_, err = f.service.Profile(context.Background(), nil)
	assert.ErrorIs(t, err, accounts.ErrUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	account := f.registerConfirmed(t, "a@x.com", "secret1")
	f.registerConfirmed(t, "b@x.com", "secret1")

	t.Run("same email skips duplicate check", func(t *testing.T) {
		profile, err := f.service.UpdateProfile(context.Background(), account.ID, accounts.UpdateProfileMessage{
			Name:    "Pepe Updated",
			Email:   "a@x.com",
			Phone:   "+44 20 7031 3000",
			Website: "https://vet.example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, accounts.Profile{
			Name:    "Pepe Updated",
			Email:   "a@x.com",
			Phone:   "+442070313000",
			Website: "https://vet.example.com",
		}, profile)
	})

	t.Run("email owned by another account", func(t *testing.T) {
		_, err := f.service.UpdateProfile(context.Background(), account.ID, accounts.UpdateProfileMessage{
			Name:  "Pepe",
			Email: "B@x.com",
		})
		assert.ErrorIs(t, err, accounts.ErrEmailTaken)
		assert.True(t, accounts.IsKind(err, accounts.KindDuplicateEmail))
	})

	t.Run("new free email", func(t *testing.T) {
		profile, err := f.service.UpdateProfile(context.Background(), account.ID, accounts.UpdateProfileMessage{
			Name:  "Pepe",
			Email: "c@x.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "c@x.com", profile.Email)
		// omitted optional fields keep the values stored by the first update
		assert.Equal(t, "+442070313000", profile.Phone)
		assert.Equal(t, "https://vet.example.com", profile.Website)

		stored, err := f.store.FindByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, "+442070313000", stored.Phone)
		assert.Equal(t, "https://vet.example.com", stored.Website)

		_, err = f.store.FindByEmail(context.Background(), "a@x.com")
		assert.ErrorIs(t, err, accounts.ErrRecordNotFound)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.service.UpdateProfile(context.Background(), uuid.New(), accounts.UpdateProfileMessage{
			Name:  "Pepe",
			Email: "d@x.com",
		})
		assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
	})

	t.Run("invalid fields", func(t *testing.T) {
		_, err := f.service.UpdateProfile(context.Background(), account.ID, accounts.UpdateProfileMessage{
			Name:  "",
			Email: "c@x.com",
		})
		assert.Equal(t, accounts.KindValidationFailed, accounts.KindOf(err))
	})
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	account := f.registerConfirmed(t, "a@x.com", "secret1")

	t.Run("wrong current password", func(t *testing.T) {
		err := f.service.ChangePassword(context.Background(), account.ID, accounts.ChangePasswordMessage{
			CurrentPassword: "nope",
			NewPassword:     "newsecret",
			ConfirmPassword: "newsecret",
		})
		assert.ErrorIs(t, err, accounts.ErrWrongCurrentPassword)
		assert.True(t, accounts.IsKind(err, accounts.KindWrongPassword))
	})

	t.Run("mismatch leaves hash unchanged", func(t *testing.T) {
		err := f.service.ChangePassword(context.Background(), account.ID, accounts.ChangePasswordMessage{
			CurrentPassword: "secret1",
			NewPassword:     "newsecret",
			ConfirmPassword: "different",
		})
		assert.ErrorIs(t, err, accounts.ErrPasswordMismatch)

		stored, err := f.store.FindByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.PasswordHash, stored.PasswordHash)
	})

	t.Run("unknown account", func(t *testing.T) {
		err := f.service.ChangePassword(context.Background(), uuid.New(), accounts.ChangePasswordMessage{
			CurrentPassword: "secret1",
			NewPassword:     "newsecret",
			ConfirmPassword: "newsecret",
		})
		assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
	})

	t.Run("success", func(t *testing.T) {
		err := f.service.ChangePassword(context.Background(), account.ID, accounts.ChangePasswordMessage{
			CurrentPassword: "secret1",
			NewPassword:     "newsecret",
			ConfirmPassword: "newsecret",
		})
		require.NoError(t, err)

		_, err = f.service.Authenticate(context.Background(), "a@x.com", "newsecret")
		require.NoError(t, err)
	})
}

func TestCurrentAccount(t *testing.T) {
	f := newFixture(t)
	account := f.registerConfirmed(t, "a@x.com", "secret1")

	found, err := f.service.CurrentAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Email, found.Email)

	_, err = f.service.CurrentAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, accounts.ErrUnauthorized)
}

func TestService_CancelledContext(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Register(ctx, accounts.RegisterAccountMessage{Name: "Pepe", Email: "a@x.com", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestService_NotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	account := f.register(t, "a@x.com", "secret1")
	assert.NotEmpty(t, account.Token)

	sent := f.waitForNotifications()
	assert.Len(t, sent, 1)
}
