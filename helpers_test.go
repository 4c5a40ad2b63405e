package accounts_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

var testSigningKey = []byte("accounts-test-signing-key")

type sentNotification struct {
	Kind         accounts.NotificationKind
	Notification accounts.Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (r *recordingNotifier) SendConfirmation(_ context.Context, n accounts.Notification) error {
	return r.record(accounts.NotificationConfirmation, n)
}

func (r *recordingNotifier) SendPasswordReset(_ context.Context, n accounts.Notification) error {
	return r.record(accounts.NotificationPasswordReset, n)
}

func (r *recordingNotifier) record(kind accounts.NotificationKind, n accounts.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{Kind: kind, Notification: n})
	return r.err
}

func (r *recordingNotifier) Sent() []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentNotification, len(r.sent))
	copy(out, r.sent)
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) Types() []accounts.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type sequenceTokens struct {
	mu sync.Mutex
	n  int
}

func (s *sequenceTokens) NewToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("token-%03d", s.n)
}

// newTestRepositoryManager opens a migrated in memory sqlite database
func newTestRepositoryManager(t *testing.T) accounts.RepositoryManager {
	t.Helper()

	mngr, err := accounts.OpenRepositoryManager(accounts.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mngr.Close() })

	mngr.MustValidate()
	require.NoError(t, mngr.Migrate(context.Background(), accounts.MigrateUp))

	return mngr
}

type fixture struct {
	service  *accounts.AccountService
	store    accounts.Accounts
	notifier *recordingNotifier
	sink     *recordingSink
	tokens   *accounts.TokenService
}

func newFixture(t *testing.T, opts ...accounts.ServiceOption) *fixture {
	t.Helper()

	mngr := newTestRepositoryManager(t)
	f := &fixture{
		store:    mngr.Accounts(),
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
		tokens:   accounts.NewTokenService(testSigningKey, 1, "accounts-test", nil, nopLogger{}),
	}

	async := accounts.NewAsyncNotifier(f.notifier, accounts.WithNotifierLogger(nopLogger{}))
	t.Cleanup(async.Wait)

	base := []accounts.ServiceOption{
		accounts.WithTokenIssuer(&sequenceTokens{}),
		accounts.WithNotifier(async),
		accounts.WithActivitySink(f.sink),
		accounts.WithLogger(nopLogger{}),
		accounts.WithOperationTimeout(5 * time.Second),
	}

	f.service = accounts.NewAccountService(f.store, f.tokens, append(base, opts...)...)
	require.NoError(t, f.service.Validate())

	return f
}

// register creates an account and returns it with its confirmation token
func (f *fixture) register(t *testing.T, email, password string) *accounts.Account {
	t.Helper()

	account, err := f.service.Register(context.Background(), accounts.RegisterAccountMessage{
		Name:     "Pepe Rone",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	require.NotNil(t, account)

	return account
}

// registerConfirmed creates a confirmed account
func (f *fixture) registerConfirmed(t *testing.T, email, password string) *accounts.Account {
	t.Helper()

	account := f.register(t, email, password)
	require.NoError(t, f.service.Confirm(context.Background(), account.Token))

	stored, err := f.store.FindByEmail(context.Background(), email)
	require.NoError(t, err)

	return stored
}

// waitForNotifications drains pending deliveries
func (f *fixture) waitForNotifications() []sentNotification {
	f.service.Notifier().Wait()
	return f.notifier.Sent()
}
