package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

type ChangePasswordMessage struct {
	AccountID       uuid.UUID `json:"-" form:"-"`
	CurrentPassword string    `json:"passwordActual" form:"passwordActual"`
	NewPassword     string    `json:"nuevoPassword" form:"nuevoPassword"`
	ConfirmPassword string    `json:"repetirNuevoPassword" form:"repetirNuevoPassword"`
}

func (e ChangePasswordMessage) Type() string { return "account.password.change" }

func (e ChangePasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.CurrentPassword, validation.Required),
		validation.Field(&e.NewPassword, validation.Required, validation.Length(minPasswordLength, 100)),
	)
}

type ChangePasswordHandler struct {
	deps *serviceDeps
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	if err := h.deps.cancelled(ctx, "password change"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.deps.timeout)
	defer cancel()

	account, err := h.deps.findByID(ctx, event.AccountID)
	if err != nil {
		return err
	}

	if !account.VerifyPassword(event.CurrentPassword) {
		return ErrWrongCurrentPassword
	}

	if event.NewPassword != event.ConfirmPassword {
		return ErrPasswordMismatch
	}

	if err := event.Validate(); err != nil {
		return validationFailed(err)
	}

	if err := account.SetPassword(event.NewPassword); err != nil {
		return validationFailed(err)
	}

	if _, err := h.deps.save(ctx, account); err != nil {
		return err
	}

	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		AccountID: account.ID.String(),
		FromState: account.State(),
		ToState:   account.State(),
	})

	return nil
}
