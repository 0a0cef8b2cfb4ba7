package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/go-auth"
	"github.com/docuflow/go-auth/store"
)

func newTestAuther(provider auth.IdentityProvider, ks auth.KeyedStore) (*auth.Auther, *auth.TokenServiceImpl) {
	tokens := newTestTokenService(ks)
	return auth.NewAuthenticator(provider, tokens), tokens
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()
	identity := newTestIdentity()

	t.Run("valid credentials yield a verifiable pair", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, identity.Username(), "secret-password").
			Return(identity, nil)

		sink := &recordingSink{}
		auther, tokens := newTestAuther(provider, store.NewMemoryStore())
		auther.WithActivitySink(sink)

		pair, got, err := auther.Login(ctx, identity.Username(), "secret-password")
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.Equal(t, identity.ID(), got.ID())

		access, err := tokens.Verify(ctx, pair.AccessToken, auth.TokenKindAccess)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), access.UserID())

		refresh, err := tokens.Verify(ctx, pair.RefreshToken, auth.TokenKindRefresh)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), refresh.UserID())

		assert.True(t, sink.has(auth.ActivityEventLoginSuccess))
		provider.AssertExpectations(t)
	})

	t.Run("bad credentials map to invalid credentials", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, identity.Username(), "wrong").
			Return(nil, auth.ErrInvalidCredentials)

		sink := &recordingSink{}
		auther, _ := newTestAuther(provider, store.NewMemoryStore())
		auther.WithActivitySink(sink)

		_, _, err := auther.Login(ctx, identity.Username(), "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.True(t, sink.has(auth.ActivityEventLoginFailure))
	})

	t.Run("unknown identity maps to invalid credentials", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, "ghost", "whatever").
			Return(nil, auth.ErrIdentityNotFound)

		auther, _ := newTestAuther(provider, store.NewMemoryStore())

		_, _, err := auther.Login(ctx, "ghost", "whatever")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("inactive account surfaces as such", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, identity.Username(), "secret-password").
			Return(nil, auth.ErrInactiveAccount)

		auther, _ := newTestAuther(provider, store.NewMemoryStore())

		_, _, err := auther.Login(ctx, identity.Username(), "secret-password")
		assert.ErrorIs(t, err, auth.ErrInactiveAccount)
	})

	t.Run("login cooldown passes through", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, identity.Username(), "secret-password").
			Return(nil, auth.ErrTooManyLoginAttempts)

		auther, _ := newTestAuther(provider, store.NewMemoryStore())

		_, _, err := auther.Login(ctx, identity.Username(), "secret-password")
		assert.ErrorIs(t, err, auth.ErrTooManyLoginAttempts)
	})
}

func TestAuther_Refresh(t *testing.T) {
	ctx := context.Background()
	identity := newTestIdentity()

	t.Run("rotation revokes the old refresh token", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, identity.Username(), "secret-password").
			Return(identity, nil)
		provider.On("FindIdentityByIdentifier", mock.Anything, identity.Username()).
			Return(identity, nil)

		auther, tokens := newTestAuther(provider, store.NewMemoryStore())

		pair, _, err := auther.Login(ctx, identity.Username(), "secret-password")
		require.NoError(t, err)

		newPair, got, err := auther.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.NotNil(t, newPair)
		assert.Equal(t, identity.ID(), got.ID())
		assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

		// the new pair works
		_, err = tokens.Verify(ctx, newPair.AccessToken, auth.TokenKindAccess)
		assert.NoError(t, err)
		_, err = tokens.Verify(ctx, newPair.RefreshToken, auth.TokenKindRefresh)
		assert.NoError(t, err)

		// the rotated refresh token does not
		_, err = tokens.Verify(ctx, pair.RefreshToken, auth.TokenKindRefresh)
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)

		// and cannot be replayed through Refresh
		_, _, err = auther.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, identity.Username(), "secret-password").
			Return(identity, nil)

		auther, _ := newTestAuther(provider, store.NewMemoryStore())

		pair, _, err := auther.Login(ctx, identity.Username(), "secret-password")
		require.NoError(t, err)

		_, _, err = auther.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("identity deleted since issue", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("FindIdentityByIdentifier", mock.Anything, identity.Username()).
			Return(nil, auth.ErrIdentityNotFound)

		auther, tokens := newTestAuther(provider, store.NewMemoryStore())

		refresh, err := tokens.IssueRefreshToken(identity)
		require.NoError(t, err)

		_, _, err = auther.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("account deactivated since issue", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("FindIdentityByIdentifier", mock.Anything, identity.Username()).
			Return(nil, auth.ErrInactiveAccount)

		auther, tokens := newTestAuther(provider, store.NewMemoryStore())

		refresh, err := tokens.IssueRefreshToken(identity)
		require.NoError(t, err)

		_, _, err = auther.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, auth.ErrInactiveAccount)
	})
}

func TestAuther_Logout(t *testing.T) {
	ctx := context.Background()
	identity := newTestIdentity()

	setup := func(t *testing.T) (*auth.Auther, *auth.TokenServiceImpl, *auth.TokenPair, *recordingSink) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, identity.Username(), "secret-password").
			Return(identity, nil)

		sink := &recordingSink{}
		auther, tokens := newTestAuther(provider, store.NewMemoryStore())
		auther.WithActivitySink(sink)

		pair, _, err := auther.Login(ctx, identity.Username(), "secret-password")
		require.NoError(t, err)

		return auther, tokens, pair, sink
	}

	t.Run("logout revokes both tokens", func(t *testing.T) {
		auther, tokens, pair, sink := setup(t)

		require.NoError(t, auther.Logout(ctx, pair.AccessToken, pair.RefreshToken))

		_, err := tokens.Verify(ctx, pair.AccessToken, auth.TokenKindAccess)
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)
		_, err = tokens.Verify(ctx, pair.RefreshToken, auth.TokenKindRefresh)
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)

		assert.True(t, sink.has(auth.ActivityEventLogout))
	})

	t.Run("second logout reports tokens already invalid", func(t *testing.T) {
		auther, _, pair, _ := setup(t)

		require.NoError(t, auther.Logout(ctx, pair.AccessToken, pair.RefreshToken))

		err := auther.Logout(ctx, pair.AccessToken, pair.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrTokensAlreadyInvalid)
	})

	t.Run("one live token is enough", func(t *testing.T) {
		auther, tokens, pair, _ := setup(t)

		require.NoError(t, auther.Logout(ctx, "garbage", pair.RefreshToken))

		_, err := tokens.Verify(ctx, pair.RefreshToken, auth.TokenKindRefresh)
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)
	})

	t.Run("garbage only tokens are already invalid", func(t *testing.T) {
		auther, _, _, _ := setup(t)

		err := auther.Logout(ctx, "garbage", "also garbage")
		assert.ErrorIs(t, err, auth.ErrTokensAlreadyInvalid)
	})
}
