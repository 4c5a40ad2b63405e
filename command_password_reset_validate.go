package accounts

import "context"

type ValidateResetTokenMessage struct {
	Token string `json:"token"`
}

func (p ValidateResetTokenMessage) Type() string { return "account.password_reset.validate" }

// ValidateResetTokenHandler resolves a reset token without consuming it
type ValidateResetTokenHandler struct {
	deps *serviceDeps
}

func (h *ValidateResetTokenHandler) Execute(ctx context.Context, event ValidateResetTokenMessage) error {
	if err := h.deps.cancelled(ctx, "reset token validation"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, h.deps.timeout)
	defer cancel()

	_, err := h.deps.findByToken(ctx, event.Token, ErrResetTokenInvalid)
	return err
}
