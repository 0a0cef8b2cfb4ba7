package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig is a Config loaded from the environment.
type EnvConfig struct {
	SigningKey      string        `env:"AUTH_SIGNING_KEY,notEmpty"`
	Issuer          string        `env:"AUTH_ISSUER" envDefault:"docuflow"`
	Audience        []string      `env:"AUTH_AUDIENCE" envSeparator:","`
	AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"168h"`
	OTPCodeTTL      time.Duration `env:"AUTH_OTP_TTL" envDefault:"5m"`
	ResetTokenTTL   time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"30m"`
	StoreTimeout    time.Duration `env:"AUTH_STORE_TIMEOUT" envDefault:"2s"`
}

var _ Config = (*EnvConfig)(nil)

// NewEnvConfig parses configuration from environment variables.
func NewEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to parse auth config from environment")
	}

	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, errors.New("refresh token TTL must exceed access token TTL", errors.CategoryValidation)
	}

	if cfg.ResetTokenTTL <= cfg.OTPCodeTTL {
		return nil, errors.New("reset token TTL must exceed OTP TTL", errors.CategoryValidation)
	}

	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string             { return c.SigningKey }
func (c *EnvConfig) GetIssuer() string                 { return c.Issuer }
func (c *EnvConfig) GetAudience() []string             { return c.Audience }
func (c *EnvConfig) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *EnvConfig) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }
func (c *EnvConfig) GetOTPCodeTTL() time.Duration      { return c.OTPCodeTTL }
func (c *EnvConfig) GetResetTokenTTL() time.Duration   { return c.ResetTokenTTL }
func (c *EnvConfig) GetStoreTimeout() time.Duration    { return c.StoreTimeout }
