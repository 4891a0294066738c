package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiroute/optiroute/internal/auth"
)

func newTestTokens() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-signing-key-at-least-32-chars!",
		Issuer:     "https://api.optiroute.dev",
		Audience:   "optiroute-api",
	})
}

func authProtected(tokens *auth.JWTService) http.Handler {
	return Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetTenantID(r.Context())))
	}))
}

func TestAuth_ValidToken(t *testing.T) {
	tokens := newTestTokens()
	token, _, err := tokens.GenerateAccessToken("tnt_123")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	authProtected(tokens).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tnt_123", rec.Body.String())
}

func TestAuth_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	rec := httptest.NewRecorder()

	authProtected(newTestTokens()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestAuth_MalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	authProtected(newTestTokens()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()

	authProtected(newTestTokens()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongKeyToken(t *testing.T) {
	other := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "a-completely-different-signing-key",
		Issuer:     "https://api.optiroute.dev",
		Audience:   "optiroute-api",
	})
	token, _, err := other.GenerateAccessToken("tnt_123")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	authProtected(newTestTokens()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTenantID_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetTenantID(req.Context()))
}
