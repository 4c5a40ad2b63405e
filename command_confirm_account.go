package accounts

import "context"

type ConfirmAccountMessage struct {
	Token string `json:"token"`
}

func (e ConfirmAccountMessage) Type() string { return "account.confirm" }

type ConfirmAccountHandler struct {
	deps *serviceDeps
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) error {
	if err := h.deps.cancelled(ctx, "account confirmation"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.deps.timeout)
	defer cancel()

	account, err := h.deps.findByToken(ctx, event.Token, ErrInvalidToken)
	if err != nil {
		return err
	}

	from, to, err := account.transition(EventConfirm, "", h.deps.now())
	if err != nil {
		return err
	}

	if _, err := h.deps.consumeToken(ctx, account, event.Token, ErrInvalidToken); err != nil {
		return err
	}

	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventConfirmed,
		AccountID: account.ID.String(),
		FromState: from,
		ToState:   to,
	})

	return nil
}
