package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider hands out named loggers so each component can log under its
// own scope.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// KeyedStore is the ephemeral keyed store backing token revocation, OTP
// codes, and reset tokens. Implementations must honor TTLs and treat a
// missing key as ErrKeyNotFound.
type KeyedStore interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Mailer delivers recovery codes to users. The library never builds message
// bodies; callers own templates and transport.
type Mailer interface {
	SendPasswordRecoveryCode(ctx context.Context, email, code string) error
}

// TokenPair is the access/refresh pair issued on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetOTPCodeTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetStoreTimeout() time.Duration
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// NoopMailer drops outgoing mail. Useful in tests and local setups without
// an SMTP relay.
type NoopMailer struct{}

func (NoopMailer) SendPasswordRecoveryCode(context.Context, string, string) error {
	return nil
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type defLoggerProvider struct{}

func (defLoggerProvider) GetLogger(string) Logger { return defLogger{} }

// ResolveLogger normalizes the provider/logger pair a component was built
// with. An explicit logger wins over the provider's named logger.
func ResolveLogger(name string, provider LoggerProvider, override Logger) (LoggerProvider, Logger) {
	if provider == nil {
		provider = defLoggerProvider{}
	}
	if override != nil {
		return provider, override
	}
	if l := provider.GetLogger(name); l != nil {
		return provider, l
	}
	return provider, defLogger{}
}
