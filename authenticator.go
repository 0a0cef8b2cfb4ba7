package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Auther orchestrates login, refresh, and logout over an identity provider
// and a token service.
type Auther struct {
	provider IdentityProvider
	tokens   TokenService
	activity ActivitySink
	logger   Logger
	lgrpvdr  LoggerProvider
}

// NewAuthenticator creates an Auther with sane defaults.
func NewAuthenticator(provider IdentityProvider, tokens TokenService) *Auther {
	lgrpvdr, logger := ResolveLogger("auth.authenticator", nil, nil)
	return &Auther{
		provider: provider,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   logger,
		lgrpvdr:  lgrpvdr,
	}
}

// WithActivitySink sets the sink used to emit auth events.
func (a *Auther) WithActivitySink(sink ActivitySink) *Auther {
	a.activity = normalizeActivitySink(sink)
	return a
}

// WithLogger overrides the logger used by the authenticator.
func (a *Auther) WithLogger(logger Logger) *Auther {
	a.lgrpvdr, a.logger = ResolveLogger("auth.authenticator", a.lgrpvdr, logger)
	return a
}

// WithLoggerProvider overrides the logger provider used by the authenticator.
func (a *Auther) WithLoggerProvider(provider LoggerProvider) *Auther {
	a.lgrpvdr, a.logger = ResolveLogger("auth.authenticator", provider, a.logger)
	return a
}

// Login verifies the identifier/password pair and mints a fresh token pair.
// Unknown identifiers and bad passwords surface the same error so responses
// cannot be used to probe for accounts.
func (a *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, Identity, error) {
	identity, err := a.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		a.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"identifier": identifier},
		})

		if errors.Is(err, ErrInactiveAccount) || errors.Is(err, ErrTooManyLoginAttempts) {
			return nil, nil, err
		}
		if errors.IsNotFound(err) || errors.Is(err, ErrInvalidCredentials) {
			return nil, nil, ErrInvalidCredentials
		}

		var rich *errors.Error
		if errors.As(err, &rich) {
			return nil, nil, rich
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to verify identity")
	}

	pair, err := a.issuePair(identity)
	if err != nil {
		return nil, nil, err
	}

	a.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: identity.ID(), Type: "user"},
		UserID:    identity.ID(),
	})

	return pair, identity, nil
}

// Refresh validates the refresh token, re-resolves the identity from the
// directory so stale role or status claims cannot be laundered into a new
// pair, then rotates: the old refresh token is revoked once the new pair is
// minted.
func (a *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, Identity, error) {
	claims, err := a.tokens.Verify(ctx, refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, nil, err
	}

	identity, err := a.provider.FindIdentityByIdentifier(ctx, claims.Subject())
	if err != nil {
		if errors.Is(err, ErrInactiveAccount) {
			return nil, nil, err
		}
		if errors.IsNotFound(err) {
			return nil, nil, ErrInvalidCredentials
		}
		var rich *errors.Error
		if errors.As(err, &rich) {
			return nil, nil, rich
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve identity during refresh")
	}

	pair, err := a.issuePair(identity)
	if err != nil {
		return nil, nil, err
	}

	if err := a.tokens.Invalidate(ctx, "", refreshToken); err != nil {
		a.logger.Warn("failed to revoke rotated refresh token", "error", err)
	}

	a.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		Actor:     ActorRef{ID: identity.ID(), Type: "user"},
		UserID:    identity.ID(),
	})

	return pair, identity, nil
}

// Logout revokes both tokens. When neither token verifies there is nothing
// to revoke and ErrTokensAlreadyInvalid is returned; a single live token is
// enough to proceed.
func (a *Auther) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var userID string
	live := 0

	if accessToken != "" {
		if claims, err := a.tokens.Verify(ctx, accessToken, TokenKindAccess); err == nil {
			userID = claims.UserID()
			live++
		}
	}
	if refreshToken != "" {
		if claims, err := a.tokens.Verify(ctx, refreshToken, TokenKindRefresh); err == nil {
			userID = claims.UserID()
			live++
		}
	}

	if live == 0 {
		return ErrTokensAlreadyInvalid
	}

	if err := a.tokens.Invalidate(ctx, accessToken, refreshToken); err != nil {
		return err
	}

	a.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		Actor:     ActorRef{ID: userID, Type: "user"},
		UserID:    userID,
	})

	return nil
}

func (a *Auther) issuePair(identity Identity) (*TokenPair, error) {
	access, err := a.tokens.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}

	refresh, err := a.tokens.IssueRefreshToken(identity)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (a *Auther) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(a.activity).Record(ctx, event); err != nil {
		a.logger.Warn("activity sink error: %v", err)
	}
}
