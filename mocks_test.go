package accounts_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-accounts"
)

// MockCredentialStore implements accounts.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	args := m.Called(ctx, email)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) FindByToken(ctx context.Context, token string) (*accounts.Account, error) {
	args := m.Called(ctx, token)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	args := m.Called(ctx, id)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) Create(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	args := m.Called(ctx, account)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) Save(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	args := m.Called(ctx, account)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) ConsumeToken(ctx context.Context, account *accounts.Account, token string) (*accounts.Account, error) {
	args := m.Called(ctx, account, token)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockCredentialStore) UpdateProfile(ctx context.Context, id uuid.UUID, profile accounts.Profile) (*accounts.Account, error) {
	args := m.Called(ctx, id, profile)
	return accountArg(args, 0), args.Error(1)
}

func accountArg(args mock.Arguments, i int) *accounts.Account {
	if a, ok := args.Get(i).(*accounts.Account); ok {
		return a
	}
	return nil
}

// MockActivitySink implements accounts.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event accounts.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockSessionIssuer implements accounts.SessionIssuer
type MockSessionIssuer struct {
	mock.Mock
}

func (m *MockSessionIssuer) Issue(account *accounts.Account) (string, error) {
	args := m.Called(account)
	return args.String(0), args.Error(1)
}
