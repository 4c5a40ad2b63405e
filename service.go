package accounts

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const defaultOperationTimeout = 10 * time.Second

// AccountService orchestrates the account lifecycle operations. Each
// operation is implemented by a command handler; the service wires them to
// shared collaborators and exposes a call/return API.
type AccountService struct {
	deps *serviceDeps

	register       *RegisterAccountHandler
	confirm        *ConfirmAccountHandler
	authenticate   *AuthenticateHandler
	initReset      *InitializePasswordResetHandler
	validateReset  *ValidateResetTokenHandler
	finalizeReset  *FinalizePasswordResetHandler
	updateProfile  *UpdateProfileHandler
	changePassword *ChangePasswordHandler
}

type serviceDeps struct {
	store       CredentialStore
	tokens      TokenIssuer
	sessions    SessionIssuer
	notifier    *AsyncNotifier
	activity    ActivitySink
	logger      Logger
	tokenTTL    time.Duration
	useHashid   bool
	phoneRegion string
	timeout     time.Duration
	now         func() time.Time
}

// ServiceOption configures an AccountService
type ServiceOption func(*serviceDeps)

// WithTokenIssuer overrides the generator of confirm and reset tokens
func WithTokenIssuer(issuer TokenIssuer) ServiceOption {
	return func(d *serviceDeps) {
		if issuer != nil {
			d.tokens = issuer
		}
	}
}

// WithNotifier sets the notification gateway
func WithNotifier(notifier *AsyncNotifier) ServiceOption {
	return func(d *serviceDeps) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// WithActivitySink sets the sink that receives lifecycle events
func WithActivitySink(sink ActivitySink) ServiceOption {
	return func(d *serviceDeps) {
		d.activity = normalizeActivitySink(sink)
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) ServiceOption {
	return func(d *serviceDeps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTokenTTL makes pending tokens expire. Zero disables expiry.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(d *serviceDeps) {
		if ttl >= 0 {
			d.tokenTTL = ttl
		}
	}
}

// WithHashidAccountIDs derives account ids from the email
func WithHashidAccountIDs(enabled bool) ServiceOption {
	return func(d *serviceDeps) {
		d.useHashid = enabled
	}
}

// WithPhoneRegion sets the region used to parse phone numbers
func WithPhoneRegion(region string) ServiceOption {
	return func(d *serviceDeps) {
		if region != "" {
			d.phoneRegion = region
		}
	}
}

// WithOperationTimeout bounds the store round trips of each operation
func WithOperationTimeout(timeout time.Duration) ServiceOption {
	return func(d *serviceDeps) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(d *serviceDeps) {
		if now != nil {
			d.now = now
		}
	}
}

// WithConfig applies the token TTL and hashid settings of cfg
func WithConfig(cfg Config) ServiceOption {
	return func(d *serviceDeps) {
		if cfg == nil {
			return
		}
		if ttl := cfg.GetTokenTTL(); ttl > 0 {
			d.tokenTTL = ttl
		}
		d.useHashid = cfg.GetUseHashid()
	}
}

// NewAccountService returns an AccountService over store issuing sessions
// with sessions.
func NewAccountService(store CredentialStore, sessions SessionIssuer, opts ...ServiceOption) *AccountService {
	deps := &serviceDeps{
		store:       store,
		tokens:      UUIDTokenIssuer{},
		sessions:    sessions,
		activity:    noopActivitySink{},
		logger:      defLogger{},
		phoneRegion: DefaultPhoneRegion,
		timeout:     defaultOperationTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(deps)
		}
	}

	if deps.notifier == nil {
		deps.notifier = NewAsyncNotifier(LogNotifier{Logger: deps.logger}, WithNotifierLogger(deps.logger))
	}

	return &AccountService{
		deps:           deps,
		register:       &RegisterAccountHandler{deps: deps},
		confirm:        &ConfirmAccountHandler{deps: deps},
		authenticate:   &AuthenticateHandler{deps: deps},
		initReset:      &InitializePasswordResetHandler{deps: deps},
		validateReset:  &ValidateResetTokenHandler{deps: deps},
		finalizeReset:  &FinalizePasswordResetHandler{deps: deps},
		updateProfile:  &UpdateProfileHandler{deps: deps},
		changePassword: &ChangePasswordHandler{deps: deps},
	}
}

// Validate reports missing collaborators
func (s *AccountService) Validate() error {
	if s.deps.store == nil {
		return errors.New("account service requires a credential store")
	}
	if s.deps.sessions == nil {
		return errors.New("account service requires a session issuer")
	}
	return nil
}

// Notifier returns the notifier used for background deliveries
func (s *AccountService) Notifier() *AsyncNotifier {
	return s.deps.notifier
}

// Register creates an unconfirmed account and sends its confirmation email.
func (s *AccountService) Register(ctx context.Context, msg RegisterAccountMessage) (*Account, error) {
	var account *Account
	msg.OnResponse = func(a *Account) { account = a }
	if err := s.register.Execute(ctx, msg); err != nil {
		return nil, err
	}
	return account, nil
}

// Confirm consumes a confirmation token.
func (s *AccountService) Confirm(ctx context.Context, token string) error {
	return s.confirm.Execute(ctx, ConfirmAccountMessage{Token: token})
}

// Authenticate verifies credentials and issues a session token.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*AuthenticatedAccount, error) {
	var result *AuthenticatedAccount
	err := s.authenticate.Execute(ctx, AuthenticateMessage{
		Email:      email,
		Password:   password,
		OnResponse: func(r *AuthenticatedAccount) { result = r },
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RequestPasswordReset issues a reset token and emails it.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.initReset.Execute(ctx, InitializePasswordResetMessage{Email: email})
}

// ValidateResetToken checks a reset token without consuming it.
func (s *AccountService) ValidateResetToken(ctx context.Context, token string) error {
	return s.validateReset.Execute(ctx, ValidateResetTokenMessage{Token: token})
}

// ApplyNewPassword consumes a reset token and replaces the password.
func (s *AccountService) ApplyNewPassword(ctx context.Context, token, password string) error {
	return s.finalizeReset.Execute(ctx, FinalizePasswordResetMessage{Token: token, Password: password})
}

// Profile returns the session view of the current account.
func (s *AccountService) Profile(_ context.Context, current *Account) (SessionAccount, error) {
	if current == nil {
		return SessionAccount{}, ErrUnauthorized
	}
	return current.SessionView(), nil
}

// UpdateProfile replaces the profile fields of account id.
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, msg UpdateProfileMessage) (Profile, error) {
	var profile Profile
	msg.AccountID = id
	msg.OnResponse = func(p Profile) { profile = p }
	if err := s.updateProfile.Execute(ctx, msg); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// ChangePassword replaces the password of the current account.
func (s *AccountService) ChangePassword(ctx context.Context, accountID uuid.UUID, msg ChangePasswordMessage) error {
	msg.AccountID = accountID
	return s.changePassword.Execute(ctx, msg)
}

// CurrentAccount resolves the account of an authenticated session.
func (s *AccountService) CurrentAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deps.timeout)
	defer cancel()

	account, err := s.deps.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, persistenceFailure(err, "failed to load session account")
	}
	return account, nil
}

func (d *serviceDeps) cancelled(ctx context.Context, operation string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during "+operation,
		)
	default:
		return nil
	}
}

// findByToken resolves token, answering invalid when nothing matches or the
// token expired.
func (d *serviceDeps) findByToken(ctx context.Context, token string, invalid error) (*Account, error) {
	account, err := d.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, persistenceFailure(err, "failed to look up token")
	}

	if tokenExpired(account, d.tokenTTL, d.now()) {
		return nil, invalid
	}

	return account, nil
}

// consumeToken saves account only if token is still the stored one.
func (d *serviceDeps) consumeToken(ctx context.Context, account *Account, token string, invalid error) (*Account, error) {
	saved, err := d.store.ConsumeToken(ctx, account, token)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, persistenceFailure(err, "failed to save account")
	}
	return saved, nil
}

func (d *serviceDeps) findByEmail(ctx context.Context, email string) (*Account, error) {
	account, err := d.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, persistenceFailure(err, "failed to look up account by email")
	}
	return account, nil
}

func (d *serviceDeps) findByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	account, err := d.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, persistenceFailure(err, "failed to look up account by id")
	}
	return account, nil
}

func (d *serviceDeps) save(ctx context.Context, account *Account) (*Account, error) {
	saved, err := d.store.Save(ctx, account)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, persistenceFailure(err, "failed to save account")
	}
	return saved, nil
}

func (d *serviceDeps) notify(ctx context.Context, kind NotificationKind, account *Account) {
	d.notifier.Dispatch(ctx, kind, Notification{
		Email: account.Email,
		Name:  account.Name,
		Token: account.Token,
	})
}

func (d *serviceDeps) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now()
	}
	if err := d.activity.Record(ctx, event); err != nil {
		d.logger.Warn("failed to record activity", "event", event.EventType, "error", err)
	}
}
