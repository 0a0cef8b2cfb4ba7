package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// PasswordResetStore is the slice of the user store recovery needs: swap the
// stored password hash for the account behind an email.
type PasswordResetStore interface {
	ResetPasswordByEmail(ctx context.Context, email, passwordHash string) error
}

// PasswordRecovery walks an account through the recovery flow: a one-time
// code is mailed out, verifying it mints a single-use reset token, and the
// reset token authorizes exactly one password change.
type PasswordRecovery struct {
	provider    IdentityProvider
	codes       OTPService
	users       PasswordResetStore
	mailer      Mailer
	activity    ActivitySink
	logger      Logger
	codeLength  int
	numericCode bool
}

// NewPasswordRecovery creates a recovery flow with a 6 digit numeric code.
func NewPasswordRecovery(provider IdentityProvider, codes OTPService, users PasswordResetStore, mailer Mailer) *PasswordRecovery {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &PasswordRecovery{
		provider:    provider,
		codes:       codes,
		users:       users,
		mailer:      mailer,
		activity:    noopActivitySink{},
		logger:      defLogger{},
		codeLength:  6,
		numericCode: true,
	}
}

// WithCodeFormat overrides the generated code's length and character set.
func (r *PasswordRecovery) WithCodeFormat(length int, numericOnly bool) *PasswordRecovery {
	if length > 0 {
		r.codeLength = length
	}
	r.numericCode = numericOnly
	return r
}

// WithActivitySink sets the sink used to emit recovery events.
func (r *PasswordRecovery) WithActivitySink(sink ActivitySink) *PasswordRecovery {
	r.activity = normalizeActivitySink(sink)
	return r
}

// WithLogger overrides the logger used by the recovery flow.
func (r *PasswordRecovery) WithLogger(logger Logger) *PasswordRecovery {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// RequestCode generates a code for the account behind email, stores it, and
// hands it to the mailer. A new request replaces any code still live for the
// same address.
func (r *PasswordRecovery) RequestCode(ctx context.Context, email string) error {
	identity, err := r.provider.FindIdentityByIdentifier(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInactiveAccount) {
			return err
		}
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		var rich *errors.Error
		if errors.As(err, &rich) {
			return rich
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to resolve account for recovery")
	}

	code, err := r.codes.GenerateCode(r.codeLength, r.numericCode)
	if err != nil {
		return err
	}

	if err := r.codes.SaveCode(ctx, email, code); err != nil {
		return err
	}

	if err := r.mailer.SendPasswordRecoveryCode(ctx, email, code); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to deliver recovery code")
	}

	r.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventOTPSent,
		Actor:     ActorRef{ID: identity.ID(), Type: "user"},
		UserID:    identity.ID(),
	})

	return nil
}

// ConfirmCode verifies the submitted code and exchanges it for a single-use
// reset token. The code is consumed before the token is minted so it can
// never verify twice, even if minting fails and the user has to start over.
func (r *PasswordRecovery) ConfirmCode(ctx context.Context, email, code string) (string, error) {
	if err := r.codes.VerifyCode(ctx, email, code); err != nil {
		return "", err
	}

	if err := r.codes.DeleteCode(ctx, email); err != nil {
		return "", err
	}

	token, err := r.codes.IssueResetToken(ctx, email)
	if err != nil {
		return "", err
	}

	r.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventOTPVerified,
		Metadata:  map[string]any{"email": email},
	})

	return token, nil
}

// ResetPassword validates the reset token and swaps the account's password.
// The token is consumed only after the change actually lands; a failed
// write leaves the token live so the user can retry.
func (r *PasswordRecovery) ResetPassword(ctx context.Context, email, token, password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}

	if err := r.codes.ValidateResetToken(ctx, email, token); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid new password provided")
	}

	if err := r.users.ResetPasswordByEmail(ctx, email, hash); err != nil {
		var rich *errors.Error
		if errors.As(err, &rich) {
			return rich
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to update password")
	}

	if err := r.codes.ConsumeResetToken(ctx, email); err != nil {
		// The password already changed; a stale token dies with its TTL.
		r.logger.Warn("failed to consume reset token after password change", "error", err)
	}

	r.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Metadata:  map[string]any{"email": email},
	})

	return nil
}

func (r *PasswordRecovery) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(r.activity).Record(ctx, event); err != nil {
		r.logger.Warn("activity sink error during password recovery: %v", err)
	}
}
