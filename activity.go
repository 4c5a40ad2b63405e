package accounts

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistered           ActivityEventType = "account.registered"
	ActivityEventConfirmed            ActivityEventType = "account.confirmed"
	ActivityEventLoginSuccess         ActivityEventType = "account.login.success"
	ActivityEventLoginFailure         ActivityEventType = "account.login.failure"
	ActivityEventPasswordResetRequest ActivityEventType = "account.password.reset_requested"
	ActivityEventPasswordResetSuccess ActivityEventType = "account.password.reset"
	ActivityEventProfileUpdated       ActivityEventType = "account.profile.updated"
	ActivityEventPasswordChanged      ActivityEventType = "account.password.changed"
	ActivityEventNotificationFailure  ActivityEventType = "account.notification.failure"
)

// ActivityEvent captures audit friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  string
	FromState  AccountState
	ToState    AccountState
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best effort, errors are logged and never fail an operation.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// ActivitySinks fans an event out to every sink. The first error is returned
// after all sinks ran.
type ActivitySinks []ActivitySink

// Record implements ActivitySink.
func (s ActivitySinks) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
