package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// SessionValidator validates a raw session token
type SessionValidator interface {
	Validate(raw string) (*SessionClaims, error)
}

// SessionMiddlewareOption configures the session middleware
type SessionMiddlewareOption func(*jwtware.Config)

// WithSessionErrorHandler overrides the handler that answers rejected requests
func WithSessionErrorHandler(handler router.ErrorHandler) SessionMiddlewareOption {
	return func(c *jwtware.Config) {
		if handler != nil {
			c.ErrorHandler = handler
		}
	}
}

// WithSessionFilter skips the middleware when filter returns true
func WithSessionFilter(filter func(router.Context) bool) SessionMiddlewareOption {
	return func(c *jwtware.Config) {
		c.Filter = filter
	}
}

// WithSessionListener appends a listener that runs after the account loaded
func WithSessionListener(listener jwtware.ValidationListener) SessionMiddlewareOption {
	return func(c *jwtware.Config) {
		c.ValidationListeners = append(c.ValidationListeners, listener)
	}
}

// SessionMiddleware rejects requests without a valid bearer token and
// attaches the session account to the request. Handlers read it back with
// CurrentAccount.
func SessionMiddleware(service *AccountService, validator SessionValidator, cfg Config, opts ...SessionMiddlewareOption) router.MiddlewareFunc {
	if service == nil {
		panic("ACCOUNTS: session middleware requires an account service")
	}

	if validator == nil {
		panic("ACCOUNTS: session middleware requires a session validator")
	}

	mwc := jwtware.Config{
		ErrorHandler: sessionErrorHandler,
		TokenValidator: jwtware.TokenValidatorFunc(func(raw string) (jwtware.Claims, error) {
			claims, err := validator.Validate(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		ValidationListeners: []jwtware.ValidationListener{
			loadSessionAccount(service),
		},
		ContextEnricher: func(c context.Context, claims jwtware.Claims) context.Context {
			if sc, ok := claims.(*SessionClaims); ok {
				return WithClaimsContext(c, sc)
			}
			return c
		},
	}

	if cfg != nil {
		mwc.ContextKey = cfg.GetContextKey()
		mwc.TokenLookup = cfg.GetTokenLookup()
		mwc.AuthScheme = cfg.GetAuthScheme()
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&mwc)
		}
	}

	return jwtware.New(mwc)
}

func loadSessionAccount(service *AccountService) jwtware.ValidationListener {
	return func(ctx router.Context, claims jwtware.Claims) error {
		sc, ok := claims.(*SessionClaims)
		if !ok || sc == nil {
			return ErrUnauthorized
		}

		id, err := sc.AccountUUID()
		if err != nil {
			return ErrUnauthorized
		}

		account, err := service.CurrentAccount(ctx.Context(), id)
		if err != nil {
			return err
		}

		ctx.Locals(AccountLocalsKey, account)
		ctx.SetContext(WithContext(ctx.Context(), account))
		return nil
	}
}

// sessionErrorHandler answers 401 for every token failure. Store failures
// keep their own status.
func sessionErrorHandler(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && KindOf(err) == KindPersistenceFailure {
		return ctx.JSON(richErr.Code, map[string]any{"msg": richErr.Message})
	}

	return ctx.JSON(router.StatusUnauthorized, map[string]any{"msg": ErrUnauthorized.Message})
}
