package accounts

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Response messages of the operations that answer with {msg}
const (
	MsgAccountConfirmed      = "Usuario confirmado correctamente!"
	MsgPasswordResetSent     = "Te hemos enviado un email con las instrucciones para recuperar tu cuenta!"
	MsgResetTokenValid       = "Token válido. El usuario existe!"
	MsgPasswordResetApplied  = "El password se modificó correctamente!"
	MsgPasswordChanged       = "Password actualizado correctamente!"
	msgInternalError         = "Hubo un error"
	defaultRoutesPathPrefix  = "/api/veterinarios"
	defaultRouteParamToken   = "token"
	defaultRouteParamProfile = "id"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// AccountControllerRoutes are relative to the group the controller is
// registered on.
type AccountControllerRoutes struct {
	Register       string
	Confirm        string
	Login          string
	PasswordReset  string
	Profile        string
	ChangePassword string
}

// AccountController exposes AccountService as JSON endpoints
type AccountController struct {
	Debug        bool
	Logger       Logger
	Service      *AccountService
	Session      router.MiddlewareFunc
	Routes       *AccountControllerRoutes
	ErrorHandler router.ErrorHandler
}

// AccountControllerOption configures an AccountController
type AccountControllerOption func(*AccountController) *AccountController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug dumps request payloads to the logger
func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

// WithControllerRoutes overrides the default route paths
func WithControllerRoutes(routes *AccountControllerRoutes) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// WithControllerErrorHandler overrides the {msg} error responder
func WithControllerErrorHandler(handler router.ErrorHandler) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

// DefaultRoutesPrefix is the group path the routes are mounted under
func DefaultRoutesPrefix() string {
	return defaultRoutesPathPrefix
}

// NewAccountController creates a controller. session guards the profile
// and change password routes.
func NewAccountController(service *AccountService, session router.MiddlewareFunc, opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:       defLogger{},
		Service:      service,
		Session:      session,
		ErrorHandler: HandleError,
		Routes: &AccountControllerRoutes{
			Register:       "/",
			Confirm:        "/confirmar",
			Login:          "/login",
			PasswordReset:  "/olvide-password",
			Profile:        "/perfil",
			ChangePassword: "/actualizar-password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing AccountService in account controller...")
	}

	if c.Session == nil {
		panic("Missing session middleware in account controller...")
	}

	return c
}

// RegisterRoutes registers the account routes on group
func (a *AccountController) RegisterRoutes(group RouteRegistrar) {
	withToken := func(path string) string {
		return fmt.Sprintf("%s/:%s", path, defaultRouteParamToken)
	}

	group.Post(a.Routes.Register, a.Register).SetName("accounts.register")
	group.Get(withToken(a.Routes.Confirm), a.Confirm).SetName("accounts.confirm")
	group.Post(a.Routes.Login, a.Login).SetName("accounts.login")

	group.Post(a.Routes.PasswordReset, a.PasswordResetRequest).SetName("accounts.pwd-reset.post")
	group.Get(withToken(a.Routes.PasswordReset), a.PasswordResetValidate).SetName("accounts.pwd-reset-token.get")
	group.Post(withToken(a.Routes.PasswordReset), a.PasswordResetApply).SetName("accounts.pwd-reset-token.post")

	group.Get(a.Routes.Profile, a.Profile, a.Session).SetName("accounts.profile.get")
	group.Put(fmt.Sprintf("%s/:%s", a.Routes.Profile, defaultRouteParamProfile), a.ProfileUpdate, a.Session).
		SetName("accounts.profile.put")
	group.Put(a.Routes.ChangePassword, a.ChangePassword, a.Session).SetName("accounts.password.put")
}

// Register creates an account and answers with the stored record
func (a *AccountController) Register(ctx router.Context) error {
	payload := new(RegisterAccountMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationFailed(err))
	}

	a.dump("REGISTER", payload)

	account, err := a.Service.Register(ctx.Context(), *payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account)
}

// Confirm consumes the confirmation token in the path
func (a *AccountController) Confirm(ctx router.Context) error {
	if err := a.Service.Confirm(ctx.Context(), ctx.Param(defaultRouteParamToken)); err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, map[string]any{"msg": MsgAccountConfirmed})
}

// Login answers with the account identity and a session token
func (a *AccountController) Login(ctx router.Context) error {
	payload := new(AuthenticateMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationFailed(err))
	}

	a.dump("LOGIN", map[string]string{"email": payload.Email})

	result, err := a.Service.Authenticate(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// PasswordResetRequest emails a reset token
func (a *AccountController) PasswordResetRequest(ctx router.Context) error {
	payload := new(InitializePasswordResetMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationFailed(err))
	}

	if err := a.Service.RequestPasswordReset(ctx.Context(), payload.Email); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"msg": MsgPasswordResetSent})
}

// PasswordResetValidate checks the reset token in the path
func (a *AccountController) PasswordResetValidate(ctx router.Context) error {
	if err := a.Service.ValidateResetToken(ctx.Context(), ctx.Param(defaultRouteParamToken)); err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, map[string]any{"msg": MsgResetTokenValid})
}

// PasswordResetApply sets the new password for the reset token in the path
func (a *AccountController) PasswordResetApply(ctx router.Context) error {
	payload := new(FinalizePasswordResetMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationFailed(err))
	}

	token := ctx.Param(defaultRouteParamToken)
	if err := a.Service.ApplyNewPassword(ctx.Context(), token, payload.Password); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"msg": MsgPasswordResetApplied})
}

// Profile answers with the session account projection
func (a *AccountController) Profile(ctx router.Context) error {
	current, _ := CurrentAccount(ctx)
	profile, err := a.Service.Profile(ctx.Context(), current)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, profile)
}

// ProfileUpdate replaces the profile of the account in the path
func (a *AccountController) ProfileUpdate(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param(defaultRouteParamProfile))
	if err != nil {
		return a.ErrorHandler(ctx, ErrAccountNotFound)
	}

	payload := new(UpdateProfileMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationFailed(err))
	}

	a.dump("PROFILE", payload)

	profile, err := a.Service.UpdateProfile(ctx.Context(), id, *payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, profile)
}

// ChangePassword replaces the password of the session account
func (a *AccountController) ChangePassword(ctx router.Context) error {
	current, ok := CurrentAccount(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthorized)
	}

	payload := new(ChangePasswordMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationFailed(err))
	}

	if err := a.Service.ChangePassword(ctx.Context(), current.ID, *payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"msg": MsgPasswordChanged})
}

func (a *AccountController) dump(title string, payload any) {
	if !a.Debug {
		return
	}
	a.Logger.Debug("account request", "route", title, "payload", print.MaybePrettyJSON(payload))
}

// HandleError answers err as {msg} with the status code it carries.
// Errors without one are reported as a 500.
func HandleError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		msg := richErr.Message
		if KindOf(err) == KindPersistenceFailure {
			msg = msgInternalError
		}
		return ctx.JSON(richErr.Code, map[string]any{"msg": msg})
	}

	return ctx.JSON(router.StatusInternalServerError, map[string]any{"msg": msgInternalError})
}
