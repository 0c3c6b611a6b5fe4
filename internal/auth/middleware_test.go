package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	tokenString, err := tm.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	var sawUser string
	handler := AuthMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r)
		require.NotNil(t, claims)
		sawUser = claims.Username
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "alice", sawUser)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	handler := AuthMiddleware(tm)(okHandler())

	req := httptest.NewRequest("GET", "/protected", nil)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthMiddleware_UniformRejectionMessage(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	expired := NewTokenManager(testSecret, -time.Minute, 7*24*time.Hour)
	otherKey := NewTokenManager("another-secret-32-characters-ok!", 15*time.Minute, 7*24*time.Hour)

	expiredToken, err := expired.IssueAccessToken(testIdentity())
	require.NoError(t, err)
	badSigToken, err := otherKey.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	handler := AuthMiddleware(tm)(okHandler())

	var bodies []string
	for _, token := range []string{expiredToken, badSigToken, "garbage"} {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		bodies = append(bodies, recorder.Body.String())
	}

	// Expired, tampered and malformed tokens must be indistinguishable.
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[1], bodies[2])
}

func TestAuthMiddleware_RejectsRefreshToken(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	refreshToken, err := tm.IssueRefreshToken(testIdentity())
	require.NoError(t, err)

	handler := AuthMiddleware(tm)(okHandler())

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireAuthority(t *testing.T) {
	tm := NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	tokenString, err := tm.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	protected := AuthMiddleware(tm)(RequireAuthority("user:read")(okHandler()))
	forbidden := AuthMiddleware(tm)(RequireAuthority("user:delete")(okHandler()))

	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	recorder := httptest.NewRecorder()
	protected.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)

	req = httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	recorder = httptest.NewRecorder()
	forbidden.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRequireAuthority_NoClaimsInContext(t *testing.T) {
	handler := RequireAuthority("user:read")(okHandler())

	req := httptest.NewRequest("GET", "/users", nil)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
