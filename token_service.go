package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Keyed store namespaces for revoked tokens. The key is the raw signed token
// string so lookup during verification is a single read.
const (
	AccessBlacklistPrefix  = "BLACKLIST:"
	RefreshBlacklistPrefix = "REFRESH_BLACKLIST:"
)

// revokedMarker is the value stored under a blacklist key. Only key presence
// matters; the value is for humans inspecting the store.
const revokedMarker = "revoked"

// TokenService mints, verifies, and revokes the access/refresh token pair.
type TokenService interface {
	IssueAccessToken(identity Identity) (string, error)
	IssueRefreshToken(identity Identity) (string, error)
	Verify(ctx context.Context, tokenString string, kind TokenKind) (AuthClaims, error)
	Invalidate(ctx context.Context, accessToken, refreshToken string) error
}

var _ TokenService = (*TokenServiceImpl)(nil)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey    []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      jwt.ClaimStrings
	store         KeyedStore
	storeTimeout  time.Duration
	accessPrefix  string
	refreshPrefix string
	logger        Logger
}

// NewTokenService creates a TokenService signing with the given HMAC key and
// consulting store for revocations. The key must be stable across restarts
// or every outstanding token dies with the process.
func NewTokenService(signingKey []byte, store KeyedStore) *TokenServiceImpl {
	return &TokenServiceImpl{
		signingKey:    signingKey,
		accessTTL:     time.Hour,
		refreshTTL:    7 * 24 * time.Hour,
		store:         store,
		storeTimeout:  2 * time.Second,
		accessPrefix:  AccessBlacklistPrefix,
		refreshPrefix: RefreshBlacklistPrefix,
		logger:        defLogger{},
	}
}

// WithTTLs overrides the access and refresh token lifetimes.
func (ts *TokenServiceImpl) WithTTLs(access, refresh time.Duration) *TokenServiceImpl {
	if access > 0 {
		ts.accessTTL = access
	}
	if refresh > 0 {
		ts.refreshTTL = refresh
	}
	return ts
}

// WithIssuer sets the iss claim minted into tokens and enforced on parse.
func (ts *TokenServiceImpl) WithIssuer(issuer string) *TokenServiceImpl {
	ts.issuer = issuer
	return ts
}

// WithAudience sets the aud claim minted into tokens and enforced on parse.
func (ts *TokenServiceImpl) WithAudience(audience []string) *TokenServiceImpl {
	ts.audience = jwt.ClaimStrings(audience)
	return ts
}

// WithStoreTimeout bounds each revocation store round trip.
func (ts *TokenServiceImpl) WithStoreTimeout(d time.Duration) *TokenServiceImpl {
	if d > 0 {
		ts.storeTimeout = d
	}
	return ts
}

// WithKeyPrefixes overrides the blacklist namespaces.
func (ts *TokenServiceImpl) WithKeyPrefixes(access, refresh string) *TokenServiceImpl {
	if access != "" {
		ts.accessPrefix = access
	}
	if refresh != "" {
		ts.refreshPrefix = refresh
	}
	return ts
}

// WithLogger overrides the logger used by the service.
func (ts *TokenServiceImpl) WithLogger(logger Logger) *TokenServiceImpl {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// IssueAccessToken mints a signed access token for the identity.
func (ts *TokenServiceImpl) IssueAccessToken(identity Identity) (string, error) {
	return ts.issue(identity, TokenKindAccess, ts.accessTTL)
}

// IssueRefreshToken mints a signed refresh token for the identity.
func (ts *TokenServiceImpl) IssueRefreshToken(identity Identity) (string, error) {
	return ts.issue(identity, TokenKindRefresh, ts.refreshTTL)
}

func (ts *TokenServiceImpl) issue(identity Identity, kind TokenKind, ttl time.Duration) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.Username(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserRole:  identity.Role(),
		TokenType: kind,
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses the token, checks signature, expiry, and kind, then consults
// the revocation blacklist. A store failure during the blacklist lookup
// denies the token rather than letting a possibly revoked credential through.
func (ts *TokenServiceImpl) Verify(ctx context.Context, tokenString string, kind TokenKind) (AuthClaims, error) {
	claims, err := ts.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Kind() != kind {
		return nil, ErrTokenMalformed
	}

	revoked, err := ts.isRevoked(ctx, tokenString, kind)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

func (ts *TokenServiceImpl) parse(tokenString string) (*JWTClaims, error) {
	// exp is mandatory; a token without it would verify forever and its
	// revocation record would have no TTL
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithExpirationRequired())
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService verify could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (ts *TokenServiceImpl) isRevoked(ctx context.Context, tokenString string, kind TokenKind) (bool, error) {
	sctx, cancel := context.WithTimeout(ctx, ts.storeTimeout)
	defer cancel()

	exists, err := ts.store.Exists(sctx, ts.blacklistKey(tokenString, kind))
	if err != nil {
		ts.logger.Error("TokenService revocation lookup failed", "error", err)
		return false, errors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode).
			WithCode(ErrStoreUnavailable.Code)
	}

	return exists, nil
}

// Invalidate blacklists the given tokens for the remainder of their
// lifetimes. Expired or unparseable tokens are skipped; they cannot be used
// anyway and a record would never expire out of the store. Store write
// failures are logged but do not fail the call, so a flaky store cannot
// block logout.
func (ts *TokenServiceImpl) Invalidate(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		ts.revoke(ctx, accessToken, TokenKindAccess)
	}
	if refreshToken != "" {
		ts.revoke(ctx, refreshToken, TokenKindRefresh)
	}
	return nil
}

func (ts *TokenServiceImpl) revoke(ctx context.Context, tokenString string, kind TokenKind) {
	claims, err := ts.parse(tokenString)
	if err != nil {
		ts.logger.Debug("TokenService skipping revocation of unusable token", "kind", kind, "error", err)
		return
	}

	remaining := time.Until(claims.Expires())
	if remaining <= 0 {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, ts.storeTimeout)
	defer cancel()

	key := ts.blacklistKey(tokenString, kind)
	if err := ts.store.SetWithTTL(sctx, key, revokedMarker, remaining); err != nil {
		ts.logger.Warn("TokenService failed to record revocation", "kind", kind, "error", err)
	}
}

func (ts *TokenServiceImpl) blacklistKey(tokenString string, kind TokenKind) string {
	if kind == TokenKindRefresh {
		return ts.refreshPrefix + tokenString
	}
	return ts.accessPrefix + tokenString
}
