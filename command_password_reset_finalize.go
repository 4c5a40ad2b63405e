package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"token"`
	Password string `json:"password" form:"password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "account.password_reset.finalize" }

func (p FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Password, validation.Required, validation.Length(minPasswordLength, 100)),
	)
}

type FinalizePasswordResetHandler struct {
	deps *serviceDeps
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if err := h.deps.cancelled(ctx, "password reset finalization"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.deps.timeout)
	defer cancel()

	account, err := h.deps.findByToken(ctx, event.Token, ErrResetTokenInvalid)
	if err != nil {
		return err
	}

	if err := event.Validate(); err != nil {
		return validationFailed(err)
	}

	if err := account.SetPassword(event.Password); err != nil {
		return validationFailed(err)
	}

	from, to, err := account.transition(EventApplyNewPassword, "", h.deps.now())
	if err != nil {
		return err
	}

	if _, err := h.deps.consumeToken(ctx, account, event.Token, ErrResetTokenInvalid); err != nil {
		return err
	}

	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		AccountID: account.ID.String(),
		FromState: from,
		ToState:   to,
	})

	return nil
}
