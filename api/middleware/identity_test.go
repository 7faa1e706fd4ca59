package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/quenbyco/storefront-backend/pkg/auth"
	"github.com/quenbyco/storefront-backend/pkg/config"
)

func identityTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "storefront",
		ExpirationMinutes: 60,
	}
}

func runIdentity(t *testing.T, cfg config.JWTConfig, mutate func(*http.Request)) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	var captured *http.Request
	handler := Identity(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, captured
}

func TestIdentityBearerToken(t *testing.T) {
	cfg := identityTestConfig()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{UserID: userID})
	require.NoError(t, err)

	rec, captured := runIdentity(t, cfg, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, userID.String(), UserIDFromContext(captured.Context()))

	identity, err := IdentityFromContext(captured.Context())
	require.NoError(t, err)
	assert.True(t, identity.IsUser())
}

func TestIdentitySessionHeader(t *testing.T) {
	rec, captured := runIdentity(t, identityTestConfig(), func(r *http.Request) {
		r.Header.Set("X-Session-Id", "guest-abc123")
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "guest-abc123", SessionIDFromContext(captured.Context()))

	identity, err := IdentityFromContext(captured.Context())
	require.NoError(t, err)
	assert.False(t, identity.IsUser())
	assert.Equal(t, "session:guest-abc123", identity.Key())
}

func TestIdentityMissingCredentials(t *testing.T) {
	rec, captured := runIdentity(t, identityTestConfig(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, captured)
}

func TestIdentityInvalidTokenNotDowngraded(t *testing.T) {
	// A bad token plus a session header must fail, not fall back to guest.
	rec, captured := runIdentity(t, identityTestConfig(), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-jwt")
		r.Header.Set("X-Session-Id", "guest-abc123")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, captured)
}

func TestIdentityRejectsOversizedSessionID(t *testing.T) {
	rec, _ := runIdentity(t, identityTestConfig(), func(r *http.Request) {
		r.Header.Set("X-Session-Id", strings.Repeat("x", maxSessionIDLength+1))
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
