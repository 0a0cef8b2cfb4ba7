package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/go-auth"
	"github.com/docuflow/go-auth/store"
)

const testEmail = "lan.pham@example.com"

func TestOTPService_GenerateCode(t *testing.T) {
	svc := auth.NewOTPService(store.NewMemoryStore())

	t.Run("numeric code", func(t *testing.T) {
		code, err := svc.GenerateCode(6, true)
		require.NoError(t, err)

		assert.Len(t, code, 6)
		for _, r := range code {
			assert.Contains(t, "0123456789", string(r))
		}
	})

	t.Run("alphabetic code", func(t *testing.T) {
		code, err := svc.GenerateCode(8, false)
		require.NoError(t, err)

		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t,
				strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz", r),
				"unexpected character %q", r)
		}
	})

	t.Run("invalid length", func(t *testing.T) {
		_, err := svc.GenerateCode(0, true)
		assert.Error(t, err)
	})

	t.Run("codes differ", func(t *testing.T) {
		a, err := svc.GenerateCode(10, false)
		require.NoError(t, err)
		b, err := svc.GenerateCode(10, false)
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})
}

func TestOTPService_CodeLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("saved code verifies", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		require.NoError(t, svc.SaveCode(ctx, testEmail, "123456"))
		assert.NoError(t, svc.VerifyCode(ctx, testEmail, "123456"))
	})

	t.Run("verify does not consume", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		require.NoError(t, svc.SaveCode(ctx, testEmail, "123456"))
		require.NoError(t, svc.VerifyCode(ctx, testEmail, "123456"))
		assert.NoError(t, svc.VerifyCode(ctx, testEmail, "123456"))
	})

	t.Run("wrong code rejected", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		require.NoError(t, svc.SaveCode(ctx, testEmail, "123456"))
		assert.ErrorIs(t, svc.VerifyCode(ctx, testEmail, "654321"), auth.ErrInvalidCode)
	})

	t.Run("unknown recipient rejected", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		assert.ErrorIs(t, svc.VerifyCode(ctx, "nobody@example.com", "123456"), auth.ErrInvalidCode)
	})

	t.Run("deleted code never verifies again", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		require.NoError(t, svc.SaveCode(ctx, testEmail, "123456"))
		require.NoError(t, svc.DeleteCode(ctx, testEmail))

		assert.ErrorIs(t, svc.VerifyCode(ctx, testEmail, "123456"), auth.ErrInvalidCode)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		require.NoError(t, svc.DeleteCode(ctx, testEmail))
		require.NoError(t, svc.DeleteCode(ctx, testEmail))
	})

	t.Run("last writer wins", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		require.NoError(t, svc.SaveCode(ctx, testEmail, "111111"))
		require.NoError(t, svc.SaveCode(ctx, testEmail, "222222"))

		assert.ErrorIs(t, svc.VerifyCode(ctx, testEmail, "111111"), auth.ErrInvalidCode)
		assert.NoError(t, svc.VerifyCode(ctx, testEmail, "222222"))
	})

	t.Run("expired code behaves like no code", func(t *testing.T) {
		now := time.Now()
		mem := store.NewMemoryStore().WithClock(func() time.Time { return now })
		svc := auth.NewOTPService(mem).WithTTLs(5*time.Minute, 30*time.Minute)

		require.NoError(t, svc.SaveCode(ctx, testEmail, "123456"))
		now = now.Add(5*time.Minute + time.Second)

		assert.ErrorIs(t, svc.VerifyCode(ctx, testEmail, "123456"), auth.ErrInvalidCode)
	})

	t.Run("store outage denies verification", func(t *testing.T) {
		svc := auth.NewOTPService(failingStore{})

		err := svc.VerifyCode(ctx, testEmail, "123456")
		require.Error(t, err)
		assert.Equal(t, auth.TextCodeStoreUnavailable, auth.TextCode(err))
	})
}

func TestOTPService_ResetTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("issued token validates", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		token, err := svc.IssueResetToken(ctx, testEmail)
		require.NoError(t, err)
		assert.Len(t, token, 64)

		assert.NoError(t, svc.ValidateResetToken(ctx, testEmail, token))
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		_, err := svc.IssueResetToken(ctx, testEmail)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.ValidateResetToken(ctx, testEmail, "deadbeef"), auth.ErrInvalidResetToken)
	})

	t.Run("token bound to recipient", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		token, err := svc.IssueResetToken(ctx, testEmail)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.ValidateResetToken(ctx, "other@example.com", token), auth.ErrInvalidResetToken)
	})

	t.Run("consumed token never validates again", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		token, err := svc.IssueResetToken(ctx, testEmail)
		require.NoError(t, err)

		require.NoError(t, svc.ConsumeResetToken(ctx, testEmail))
		assert.ErrorIs(t, svc.ValidateResetToken(ctx, testEmail, token), auth.ErrInvalidResetToken)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		now := time.Now()
		mem := store.NewMemoryStore().WithClock(func() time.Time { return now })
		svc := auth.NewOTPService(mem).WithTTLs(5*time.Minute, 30*time.Minute)

		token, err := svc.IssueResetToken(ctx, testEmail)
		require.NoError(t, err)

		now = now.Add(30*time.Minute + time.Second)
		assert.ErrorIs(t, svc.ValidateResetToken(ctx, testEmail, token), auth.ErrInvalidResetToken)
	})

	t.Run("reissue replaces previous token", func(t *testing.T) {
		svc := auth.NewOTPService(store.NewMemoryStore())

		first, err := svc.IssueResetToken(ctx, testEmail)
		require.NoError(t, err)
		second, err := svc.IssueResetToken(ctx, testEmail)
		require.NoError(t, err)
		require.NotEqual(t, first, second)

		assert.ErrorIs(t, svc.ValidateResetToken(ctx, testEmail, first), auth.ErrInvalidResetToken)
		assert.NoError(t, svc.ValidateResetToken(ctx, testEmail, second))
	})
}
