package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInactiveAccount    = "INACTIVE_ACCOUNT"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenRevoked       = "TOKEN_REVOKED"
	TextCodeInvalidCode        = "INVALID_CODE"
	TextCodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	TextCodePasswordMismatch   = "PASSWORD_MISMATCH"
	TextCodeStoreUnavailable   = "STORE_UNAVAILABLE"
)

// ErrInvalidCredentials is returned when the identifier or password does not
// match a usable account. Unknown accounts map here too so responses do not
// leak which identifiers exist.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrInactiveAccount is returned when the account exists but its status does
// not allow authentication.
var ErrInactiveAccount = errors.New("account is not active", errors.CategoryAuth).
	WithTextCode(TextCodeInactiveAccount).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse, carry a bad
// signature, or are of the wrong kind.
var ErrTokenMalformed = errors.New("token is malformed or has an invalid signature", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for well-formed tokens past their expiry.
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked is returned for otherwise valid tokens found on the
// revocation blacklist.
var ErrTokenRevoked = errors.New("token has been revoked", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCode is returned when an OTP code is absent, expired, or does not
// match the stored value.
var ErrInvalidCode = errors.New("invalid or expired code", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(errors.CodeBadRequest)

// ErrInvalidResetToken is returned when a password reset token is absent,
// expired, already used, or does not match.
var ErrInvalidResetToken = errors.New("invalid or expired reset token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidResetToken).
	WithCode(errors.CodeBadRequest)

// ErrPasswordMismatch is returned when a new password and its confirmation
// disagree.
var ErrPasswordMismatch = errors.New("password and confirmation do not match", errors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeBadRequest)

// ErrStoreUnavailable is returned when the keyed store cannot be reached or
// times out. Verification paths treat this as a denial.
var ErrStoreUnavailable = errors.New("ephemeral store unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(errors.CodeInternal)

// ErrTokensAlreadyInvalid is returned by logout when none of the presented
// tokens verified, so there was nothing to revoke.
var ErrTokensAlreadyInvalid = errors.New("tokens are already invalid", errors.CategoryBadInput).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeBadRequest)

// ErrTooManyLoginAttempts is returned when an account is inside its login
// cooldown window.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode("TOO_MANY_ATTEMPTS")

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_PASSWORD").
	WithCode(errors.CodeBadRequest)

// ErrKeyNotFound is the sentinel keyed store implementations return for
// absent keys.
var ErrKeyNotFound = errors.New("key not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// IsTokenVerificationError reports whether err is one of the typed
// verification failures (malformed, expired, revoked).
func IsTokenVerificationError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked)
}

// TextCode extracts the machine readable text code from a rich error, empty
// string otherwise.
func TextCode(err error) string {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}
