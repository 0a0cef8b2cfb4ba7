package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/goliatone/go-errors"
)

// Keyed store namespaces for recovery credentials, keyed by recipient email.
const (
	OTPKeyPrefix        = "OTP:"
	ResetTokenKeyPrefix = "RESET_TOKEN:"
)

const (
	otpDigits   = "0123456789"
	otpAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// resetTokenBytes is the entropy of a reset token before hex encoding.
	resetTokenBytes = 32
)

// OTPService manages one-time codes and the single-use reset tokens minted
// after a code verifies.
type OTPService interface {
	GenerateCode(length int, numericOnly bool) (string, error)
	SaveCode(ctx context.Context, email, code string) error
	VerifyCode(ctx context.Context, email, code string) error
	DeleteCode(ctx context.Context, email string) error
	IssueResetToken(ctx context.Context, email string) (string, error)
	ValidateResetToken(ctx context.Context, email, token string) error
	ConsumeResetToken(ctx context.Context, email string) error
}

var _ OTPService = (*OTPServiceImpl)(nil)

// OTPServiceImpl implements the OTPService interface
type OTPServiceImpl struct {
	store        KeyedStore
	codeTTL      time.Duration
	resetTTL     time.Duration
	storeTimeout time.Duration
	otpPrefix    string
	resetPrefix  string
	logger       Logger
}

// NewOTPService creates an OTPService over the given keyed store.
func NewOTPService(store KeyedStore) *OTPServiceImpl {
	return &OTPServiceImpl{
		store:        store,
		codeTTL:      5 * time.Minute,
		resetTTL:     30 * time.Minute,
		storeTimeout: 2 * time.Second,
		otpPrefix:    OTPKeyPrefix,
		resetPrefix:  ResetTokenKeyPrefix,
		logger:       defLogger{},
	}
}

// WithTTLs overrides the OTP and reset token lifetimes. The reset TTL should
// stay longer than the code TTL so a user who just verified has time to pick
// a password.
func (s *OTPServiceImpl) WithTTLs(code, reset time.Duration) *OTPServiceImpl {
	if code > 0 {
		s.codeTTL = code
	}
	if reset > 0 {
		s.resetTTL = reset
	}
	return s
}

// WithStoreTimeout bounds each store round trip.
func (s *OTPServiceImpl) WithStoreTimeout(d time.Duration) *OTPServiceImpl {
	if d > 0 {
		s.storeTimeout = d
	}
	return s
}

// WithKeyPrefixes overrides the OTP and reset token namespaces.
func (s *OTPServiceImpl) WithKeyPrefixes(otp, reset string) *OTPServiceImpl {
	if otp != "" {
		s.otpPrefix = otp
	}
	if reset != "" {
		s.resetPrefix = reset
	}
	return s
}

// WithLogger overrides the logger used by the service.
func (s *OTPServiceImpl) WithLogger(logger Logger) *OTPServiceImpl {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// GenerateCode produces a random code of the given length from a CSPRNG.
// Numeric codes draw from digits only, otherwise from upper and lower case
// letters.
func (s *OTPServiceImpl) GenerateCode(length int, numericOnly bool) (string, error) {
	if length <= 0 {
		return "", errors.New("code length must be positive", errors.CategoryBadInput)
	}

	charset := otpAlphabet
	if numericOnly {
		charset = otpDigits
	}

	max := big.NewInt(int64(len(charset)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes for code")
		}
		buf[i] = charset[n.Int64()]
	}

	return string(buf), nil
}

// SaveCode stores the code for the recipient, replacing any live code so at
// most one can verify at a time.
func (s *OTPServiceImpl) SaveCode(ctx context.Context, email, code string) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.SetWithTTL(sctx, s.otpPrefix+email, code, s.codeTTL); err != nil {
		return s.storeFailure(err, "failed to save code")
	}
	return nil
}

// VerifyCode checks the submitted code against the stored one. It does NOT
// consume the code; callers that want exactly-once semantics follow up with
// DeleteCode. A store failure denies verification.
func (s *OTPServiceImpl) VerifyCode(ctx context.Context, email, code string) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	stored, err := s.store.Get(sctx, s.otpPrefix+email)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return ErrInvalidCode
		}
		return s.storeFailure(err, "failed to read code")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	return nil
}

// DeleteCode removes the recipient's code. Deleting an absent code is a
// no-op.
func (s *OTPServiceImpl) DeleteCode(ctx context.Context, email string) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.Delete(sctx, s.otpPrefix+email); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return s.storeFailure(err, "failed to delete code")
	}
	return nil
}

// IssueResetToken mints a single-use reset token for the recipient and
// stores it under the reset namespace.
func (s *OTPServiceImpl) IssueResetToken(ctx context.Context, email string) (string, error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes for reset token")
	}
	token := hex.EncodeToString(raw)

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.SetWithTTL(sctx, s.resetPrefix+email, token, s.resetTTL); err != nil {
		return "", s.storeFailure(err, "failed to save reset token")
	}

	return token, nil
}

// ValidateResetToken checks the submitted token against the stored one
// without consuming it.
func (s *OTPServiceImpl) ValidateResetToken(ctx context.Context, email, token string) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	stored, err := s.store.Get(sctx, s.resetPrefix+email)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return ErrInvalidResetToken
		}
		return s.storeFailure(err, "failed to read reset token")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return ErrInvalidResetToken
	}

	return nil
}

// ConsumeResetToken removes the recipient's reset token. Consuming an absent
// token is a no-op.
func (s *OTPServiceImpl) ConsumeResetToken(ctx context.Context, email string) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.Delete(sctx, s.resetPrefix+email); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return s.storeFailure(err, "failed to delete reset token")
	}
	return nil
}

func (s *OTPServiceImpl) storeFailure(err error, msg string) error {
	s.logger.Error("OTPService store operation failed", "error", err)
	return errors.Wrap(err, ErrStoreUnavailable.Category, msg).
		WithTextCode(ErrStoreUnavailable.TextCode).
		WithCode(ErrStoreUnavailable.Code)
}
