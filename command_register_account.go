package accounts

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

type RegisterAccountMessage struct {
	Name       string                 `json:"nombre" form:"nombre"`
	Email      string                 `json:"email" form:"email"`
	Password   string                 `json:"password" form:"password"`
	Phone      string                 `json:"telefono" form:"telefono"`
	Website    string                 `json:"web" form:"web"`
	OnResponse func(account *Account) `json:"-" form:"-"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

func (e RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(minPasswordLength, 100)),
		validation.Field(&e.Website, is.URL),
	)
}

type RegisterAccountHandler struct {
	deps *serviceDeps
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	if err := h.deps.cancelled(ctx, "account registration"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if err := event.Validate(); err != nil {
		return validationFailed(err)
	}

	phone, err := NormalizePhone(event.Phone, h.deps.phoneRegion)
	if err != nil {
		return validationFailed(validation.Errors{"telefono": errInvalidPhone})
	}

	ctx, cancel := context.WithTimeout(ctx, h.deps.timeout)
	defer cancel()

	email := NormalizeEmail(event.Email)

	_, err = h.deps.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case !errors.Is(err, ErrRecordNotFound):
		return persistenceFailure(err, "failed to check email availability")
	}

	id, err := h.accountID(ctx, email)
	if err != nil {
		return err
	}

	account := &Account{
		ID:      id,
		Name:    strings.TrimSpace(event.Name),
		Email:   email,
		Phone:   phone,
		Website: strings.TrimSpace(event.Website),
	}

	if err := account.SetPassword(event.Password); err != nil {
		return validationFailed(err)
	}

	account.issueToken(h.deps.tokens.NewToken(), h.deps.now())

	created, err := h.deps.store.Create(ctx, account)
	if err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, ErrDuplicateRecord) {
			return ErrDuplicateEmail
		}
		return persistenceFailure(err, "failed to create account")
	}

	h.deps.notify(ctx, NotificationConfirmation, created)

	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistered,
		AccountID: created.ID.String(),
		ToState:   created.State(),
		Metadata:  map[string]any{"email": created.Email},
	})

	if event.OnResponse != nil {
		event.OnResponse(created)
	}

	return nil
}

// accountID derives the id from email when hashids are enabled. An account
// that registered the address and later moved to another email still holds
// that id, so the new registration gets a random one.
func (h *RegisterAccountHandler) accountID(ctx context.Context, email string) (uuid.UUID, error) {
	id := newAccountID(email, h.deps.useHashid)
	if !h.deps.useHashid {
		return id, nil
	}

	_, err := h.deps.store.FindByID(ctx, id)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return id, nil
	case err != nil:
		return uuid.Nil, persistenceFailure(err, "failed to check account id")
	}

	return uuid.New(), nil
}
