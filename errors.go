package accounts

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes identify the error kinds returned by AccountService.
const (
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeNotConfirmed       = "ACCOUNT_NOT_CONFIRMED"
	TextCodeWrongPassword      = "WRONG_PASSWORD"
	TextCodePasswordMismatch   = "PASSWORD_MISMATCH"
	TextCodePersistenceFailure = "PERSISTENCE_FAILURE"
	TextCodeValidationFailed   = "VALIDATION_FAILED"
	TextCodeUnauthorized       = "UNAUTHORIZED"
)

// Kind is the coarse classification of an account error.
type Kind string

const (
	KindUnknown            Kind = ""
	KindDuplicateEmail     Kind = "DuplicateEmail"
	KindInvalidToken       Kind = "InvalidToken"
	KindAccountNotFound    Kind = "AccountNotFound"
	KindNotConfirmed       Kind = "NotConfirmed"
	KindWrongPassword      Kind = "WrongPassword"
	KindPasswordMismatch   Kind = "PasswordMismatch"
	KindPersistenceFailure Kind = "PersistenceFailure"
	KindValidationFailed   Kind = "ValidationFailed"
	KindUnauthorized       Kind = "Unauthorized"
)

var kindsByTextCode = map[string]Kind{
	TextCodeDuplicateEmail:     KindDuplicateEmail,
	TextCodeInvalidToken:       KindInvalidToken,
	TextCodeAccountNotFound:    KindAccountNotFound,
	TextCodeNotConfirmed:       KindNotConfirmed,
	TextCodeWrongPassword:      KindWrongPassword,
	TextCodePasswordMismatch:   KindPasswordMismatch,
	TextCodePersistenceFailure: KindPersistenceFailure,
	TextCodeValidationFailed:   KindValidationFailed,
	TextCodeUnauthorized:       KindUnauthorized,
}

// ErrDuplicateEmail is returned on registration when the email is taken.
var ErrDuplicateEmail = goerrors.New("Usuario ya registrado!", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned on profile update when the new email belongs
// to another account.
var ErrEmailTaken = goerrors.New("El email ya existe!", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidToken is returned when a token matches no account or has expired.
var ErrInvalidToken = goerrors.New("Token no válido!", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeNotFound)

// ErrResetTokenInvalid is returned by the password reset endpoints when the
// token matches no account or has expired.
var ErrResetTokenInvalid = goerrors.New("El token no es válido!", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountNotFound is returned when an email or id resolves to no account.
var ErrAccountNotFound = goerrors.New("El usuario no existe!", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrNotConfirmed is returned on login for accounts that never confirmed their email.
var ErrNotConfirmed = goerrors.New("Tu cuenta no ha sído confirmada!", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotConfirmed).
	WithCode(goerrors.CodeForbidden)

// ErrWrongPassword is returned on login when the password does not match.
var ErrWrongPassword = goerrors.New("El password es incorrecto!", goerrors.CategoryAuth).
	WithTextCode(TextCodeWrongPassword).
	WithCode(goerrors.CodeForbidden)

// ErrWrongCurrentPassword is returned on password change when the current
// password does not match.
var ErrWrongCurrentPassword = goerrors.New("El Password actual es incorrecto!", goerrors.CategoryValidation).
	WithTextCode(TextCodeWrongPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordMismatch is returned when a new password and its confirmation differ.
var ErrPasswordMismatch = goerrors.New(
	"Las contraseñas no coinciden. Por favor, asegúrate de que ambas contraseñas sean iguales!",
	goerrors.CategoryValidation,
).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrUnauthorized is returned when a protected route has no valid session.
var ErrUnauthorized = goerrors.New("Token no válido o inexistente", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// Store level sentinels. CredentialStore implementations return these and
// AccountService translates them into the errors above.
var (
	// ErrRecordNotFound no account matched the lookup
	ErrRecordNotFound = errors.New("account record not found")
	// ErrDuplicateRecord a unique index rejected the write
	ErrDuplicateRecord = errors.New("account record violates a unique constraint")
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can't be an empty string")

// ErrMismatchedHashAndPassword the password does not match the hash
var ErrMismatchedHashAndPassword = errors.New("password does not match hash")

// persistenceFailure wraps a store error so it surfaces as a 500.
func persistenceFailure(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodePersistenceFailure).
		WithCode(goerrors.CodeInternal)
}

// validationFailed wraps a payload validation error so it surfaces as a 400.
func validationFailed(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
		WithTextCode(TextCodeValidationFailed).
		WithCode(goerrors.CodeBadRequest)
}

// KindOf reports the kind of err. Errors that carry no known text code are
// reported as KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return KindUnknown
	}

	if kind, ok := kindsByTextCode[richErr.TextCode]; ok {
		return kind
	}

	return KindUnknown
}

// IsKind reports whether err is of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTokenExpiredError will check for expired session tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed session tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
