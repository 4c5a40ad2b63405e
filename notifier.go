package accounts

import (
	"context"
	"sync"
	"time"
)

// Notification is the payload of a confirmation or reset email.
type Notification struct {
	Email string `json:"email"`
	Name  string `json:"nombre"`
	Token string `json:"token"`
}

// NotificationKind names the email being sent.
type NotificationKind string

const (
	NotificationConfirmation  NotificationKind = "confirmation"
	NotificationPasswordReset NotificationKind = "password_reset"
)

// Notifier delivers account emails.
type Notifier interface {
	SendConfirmation(ctx context.Context, n Notification) error
	SendPasswordReset(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a logger instead of sending them.
type LogNotifier struct {
	Logger Logger
}

// SendConfirmation implements Notifier.
func (l LogNotifier) SendConfirmation(_ context.Context, n Notification) error {
	l.logger().Info("confirmation email", "email", n.Email, "name", n.Name, "token", n.Token)
	return nil
}

// SendPasswordReset implements Notifier.
func (l LogNotifier) SendPasswordReset(_ context.Context, n Notification) error {
	l.logger().Info("password reset email", "email", n.Email, "name", n.Name, "token", n.Token)
	return nil
}

func (l LogNotifier) logger() Logger {
	if l.Logger == nil {
		return defLogger{}
	}
	return l.Logger
}

// AsyncNotifier sends notifications in the background. Delivery errors are
// logged and reported to the failure callback but never returned.
type AsyncNotifier struct {
	notifier  Notifier
	logger    Logger
	timeout   time.Duration
	onFailure func(ctx context.Context, kind NotificationKind, n Notification, err error)
	wg        sync.WaitGroup
}

// AsyncNotifierOption configures an AsyncNotifier
type AsyncNotifierOption func(*AsyncNotifier)

// WithNotifierLogger sets the logger used for delivery failures
func WithNotifierLogger(logger Logger) AsyncNotifierOption {
	return func(a *AsyncNotifier) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithNotifierTimeout bounds each delivery
func WithNotifierTimeout(timeout time.Duration) AsyncNotifierOption {
	return func(a *AsyncNotifier) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithNotifierFailureHandler is called after a delivery fails
func WithNotifierFailureHandler(fn func(ctx context.Context, kind NotificationKind, n Notification, err error)) AsyncNotifierOption {
	return func(a *AsyncNotifier) {
		a.onFailure = fn
	}
}

// NewAsyncNotifier wraps notifier so every send is fire and forget
func NewAsyncNotifier(notifier Notifier, opts ...AsyncNotifierOption) *AsyncNotifier {
	if notifier == nil {
		notifier = LogNotifier{}
	}

	a := &AsyncNotifier{
		notifier: notifier,
		logger:   defLogger{},
		timeout:  30 * time.Second,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Dispatch sends n in the background and returns immediately.
func (a *AsyncNotifier) Dispatch(ctx context.Context, kind NotificationKind, n Notification) {
	// the request context is cancelled once the handler answers
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		var err error
		switch kind {
		case NotificationConfirmation:
			err = a.notifier.SendConfirmation(ctx, n)
		case NotificationPasswordReset:
			err = a.notifier.SendPasswordReset(ctx, n)
		default:
			a.logger.Warn("unknown notification kind", "kind", kind)
			return
		}

		if err != nil {
			a.logger.Error("failed to deliver notification", "kind", kind, "email", n.Email, "error", err)
			if a.onFailure != nil {
				a.onFailure(ctx, kind, n, err)
			}
		}
	}()
}

// Wait blocks until every dispatched notification finished.
func (a *AsyncNotifier) Wait() {
	a.wg.Wait()
}
