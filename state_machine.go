package accounts

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"

// ErrInvalidTransition is returned when a token event does not apply to the
// current state of an account.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// AccountState is the token lifecycle state of an account. It is derived
// from the Confirmed and Token fields and never stored.
type AccountState string

const (
	StateUnconfirmedPendingConfirm AccountState = "unconfirmed_pending_confirm"
	StateConfirmedNoPendingReset   AccountState = "confirmed_no_pending_reset"
	StateConfirmedPendingReset     AccountState = "confirmed_pending_reset"
)

// TokenEvent drives an account from one state to the next.
type TokenEvent string

const (
	EventConfirm          TokenEvent = "confirm"
	EventRequestReset     TokenEvent = "request_reset"
	EventApplyNewPassword TokenEvent = "apply_new_password"
)

var transitions = map[AccountState]map[TokenEvent]AccountState{
	StateUnconfirmedPendingConfirm: {
		EventConfirm: StateConfirmedNoPendingReset,
		// the token is replaced or consumed, the account stays unconfirmed
		EventRequestReset:     StateUnconfirmedPendingConfirm,
		EventApplyNewPassword: StateUnconfirmedPendingConfirm,
	},
	StateConfirmedNoPendingReset: {
		EventRequestReset: StateConfirmedPendingReset,
	},
	StateConfirmedPendingReset: {
		EventConfirm:          StateConfirmedNoPendingReset,
		EventRequestReset:     StateConfirmedPendingReset,
		EventApplyNewPassword: StateConfirmedNoPendingReset,
	},
}

// State returns the current lifecycle state of the account.
func (a *Account) State() AccountState {
	switch {
	case !a.Confirmed:
		return StateUnconfirmedPendingConfirm
	case a.Token != "":
		return StateConfirmedPendingReset
	default:
		return StateConfirmedNoPendingReset
	}
}

// NextState returns the state reached by applying event to from.
func NextState(from AccountState, event TokenEvent) (AccountState, error) {
	to, ok := transitions[from][event]
	if !ok {
		return "", ErrInvalidTransition
	}
	return to, nil
}

// transition validates event against the current state and mutates the
// account token fields accordingly. token is only used by EventRequestReset.
func (a *Account) transition(event TokenEvent, token string, now time.Time) (AccountState, AccountState, error) {
	from := a.State()
	to, err := NextState(from, event)
	if err != nil {
		return from, from, err
	}

	switch event {
	case EventConfirm:
		a.Confirmed = true
		a.clearToken()
	case EventRequestReset:
		a.issueToken(token, now)
	case EventApplyNewPassword:
		a.clearToken()
	}

	return from, to, nil
}

func (a *Account) issueToken(token string, now time.Time) {
	a.Token = token
	a.TokenIssuedAt = &now
}

func (a *Account) clearToken() {
	a.Token = ""
	a.TokenIssuedAt = nil
}
