package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type AuthenticateMessage struct {
	Email      string                           `json:"email" form:"email"`
	Password   string                           `json:"password" form:"password"`
	OnResponse func(resp *AuthenticatedAccount) `json:"-" form:"-"`
}

func (e AuthenticateMessage) Type() string { return "account.authenticate" }

type AuthenticateHandler struct {
	deps *serviceDeps
}

func (h *AuthenticateHandler) Execute(ctx context.Context, event AuthenticateMessage) error {
	if err := h.deps.cancelled(ctx, "authentication"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *AuthenticateHandler) execute(ctx context.Context, event AuthenticateMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.deps.timeout)
	defer cancel()

	account, err := h.deps.findByEmail(ctx, event.Email)
	if err != nil {
		h.recordFailure(ctx, "", event.Email, err)
		return err
	}

	// confirmation is checked before the password
	if !account.Confirmed {
		h.recordFailure(ctx, account.ID.String(), account.Email, ErrNotConfirmed)
		return ErrNotConfirmed
	}

	if !account.VerifyPassword(event.Password) {
		h.recordFailure(ctx, account.ID.String(), account.Email, ErrWrongPassword)
		return ErrWrongPassword
	}

	token, err := h.deps.sessions.Issue(account)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token").
			WithCode(goerrors.CodeInternal)
	}

	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: account.ID.String(),
		FromState: account.State(),
		ToState:   account.State(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&AuthenticatedAccount{
			ID:    account.ID,
			Name:  account.Name,
			Email: account.Email,
			Token: token,
		})
	}

	return nil
}

func (h *AuthenticateHandler) recordFailure(ctx context.Context, accountID, email string, cause error) {
	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		AccountID: accountID,
		Metadata: map[string]any{
			"email":  NormalizeEmail(email),
			"reason": string(KindOf(cause)),
		},
	})
}
