package auth_test

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	"github.com/docuflow/go-auth"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{"ErrInvalidCredentials", auth.ErrInvalidCredentials, goerrors.CategoryAuth, auth.TextCodeInvalidCredentials},
		{"ErrInactiveAccount", auth.ErrInactiveAccount, goerrors.CategoryAuth, auth.TextCodeInactiveAccount},
		{"ErrTokenMalformed", auth.ErrTokenMalformed, goerrors.CategoryAuth, auth.TextCodeTokenMalformed},
		{"ErrTokenExpired", auth.ErrTokenExpired, goerrors.CategoryAuth, auth.TextCodeTokenExpired},
		{"ErrTokenRevoked", auth.ErrTokenRevoked, goerrors.CategoryAuth, auth.TextCodeTokenRevoked},
		{"ErrInvalidCode", auth.ErrInvalidCode, goerrors.CategoryAuth, auth.TextCodeInvalidCode},
		{"ErrInvalidResetToken", auth.ErrInvalidResetToken, goerrors.CategoryAuth, auth.TextCodeInvalidResetToken},
		{"ErrPasswordMismatch", auth.ErrPasswordMismatch, goerrors.CategoryValidation, auth.TextCodePasswordMismatch},
		{"ErrStoreUnavailable", auth.ErrStoreUnavailable, goerrors.CategoryOperation, auth.TextCodeStoreUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.category, tc.err.Category)
			assert.Equal(t, tc.textCode, tc.err.TextCode)
		})
	}
}

func TestIsTokenVerificationError(t *testing.T) {
	assert.True(t, auth.IsTokenVerificationError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsTokenVerificationError(auth.ErrTokenExpired))
	assert.True(t, auth.IsTokenVerificationError(auth.ErrTokenRevoked))
	assert.False(t, auth.IsTokenVerificationError(auth.ErrInvalidCredentials))
	assert.False(t, auth.IsTokenVerificationError(nil))
}
