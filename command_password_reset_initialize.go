package accounts

import "context"

type InitializePasswordResetMessage struct {
	Email string `json:"email" form:"email" example:"pepe.rone@example.com"`
}

func (p InitializePasswordResetMessage) Type() string { return "account.password_reset" }

type InitializePasswordResetHandler struct {
	deps *serviceDeps
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := h.deps.cancelled(ctx, "password reset initialization"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.deps.timeout)
	defer cancel()

	account, err := h.deps.findByEmail(ctx, event.Email)
	if err != nil {
		return err
	}

	// any pending token, confirm or reset, is overwritten
	from, to, err := account.transition(EventRequestReset, h.deps.tokens.NewToken(), h.deps.now())
	if err != nil {
		return err
	}

	saved, err := h.deps.save(ctx, account)
	if err != nil {
		return err
	}

	h.deps.notify(ctx, NotificationPasswordReset, saved)

	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		AccountID: saved.ID.String(),
		FromState: from,
		ToState:   to,
	})

	return nil
}
