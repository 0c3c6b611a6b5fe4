package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/shopfloor/gatekeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		os.Exit(0)
	}

	ctx := context.Background()

	var err error
	testDB, err = SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Teardown(ctx)
	os.Exit(code)
}

func resetState(t *testing.T) *TestServer {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
	ts := NewTestServer(testDB)
	t.Cleanup(ts.Close)
	return ts
}

func remainingPhrase(n int) string {
	if n == 1 {
		return "1 attempt remaining"
	}
	return fmt.Sprintf("%d attempts remaining", n)
}

func TestSignUpAndSignInFlow(t *testing.T) {
	ts := resetState(t)

	status, body, err := ts.PostJSON("/api/auth/signup", map[string]interface{}{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "Secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, "signup response: %v", body)
	assert.Equal(t, "User registered successfully", body["message"])
	assert.Equal(t, "newuser", body["username"])
	assert.NotEmpty(t, body["id"])

	status, body, err = ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "newuser",
		"password": "Secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, "signin response: %v", body)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refreshToken"])
	assert.Equal(t, "newuser", body["username"])
	assert.Equal(t, []interface{}{"USER"}, body["roles"])

	token := body["token"].(string)

	status, body, err = ts.GetJSON("/api/users/me", token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "newuser", body["username"])
	assert.Equal(t, "newuser@example.com", body["email"])
}

func TestSignUp_AdminRoleRequest(t *testing.T) {
	ts := resetState(t)

	status, _, err := ts.PostJSON("/api/auth/signup", map[string]interface{}{
		"username": "adminuser",
		"email":    "admin@example.com",
		"password": "Secret123",
		"roles":    []string{"admin"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	status, body, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "adminuser",
		"password": "Secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"ADMIN"}, body["roles"])
}

func TestSignUp_DuplicateUsername(t *testing.T) {
	ts := resetState(t)

	_, err := SeedUser(context.Background(), testDB.Pool, "taken", "taken@example.com", "Secret123", models.RoleUser)
	require.NoError(t, err)

	status, body, err := ts.PostJSON("/api/auth/signup", map[string]interface{}{
		"username": "taken",
		"email":    "other@example.com",
		"password": "Secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Username is already taken", body["message"])
}

func TestBruteForceLockout(t *testing.T) {
	ts := resetState(t)

	_, err := SeedUser(context.Background(), testDB.Pool, "victim", "victim@example.com", "Secret123", models.RoleUser)
	require.NoError(t, err)

	// Five wrong passwords exhaust the allowance.
	for i := 1; i <= testMaxAttempts; i++ {
		status, body, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
			"username": "victim",
			"password": "wrong-password",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, status, "attempt %d: %v", i, body)
		assert.Contains(t, body["message"], remainingPhrase(testMaxAttempts-i))
	}

	// The sixth attempt is refused before the credential check, even with
	// the correct password.
	status, body, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "victim",
		"password": "Secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, body["message"], "30 minutes")
}

func TestLockoutIsScopedToUsernameAddressPair(t *testing.T) {
	ts := resetState(t)

	ctx := context.Background()
	_, err := SeedUser(ctx, testDB.Pool, "victim", "victim@example.com", "Secret123", models.RoleUser)
	require.NoError(t, err)
	_, err = SeedUser(ctx, testDB.Pool, "bystander", "bystander@example.com", "Secret123", models.RoleUser)
	require.NoError(t, err)

	for i := 0; i < testMaxAttempts; i++ {
		_, _, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
			"username": "victim",
			"password": "wrong-password",
		})
		require.NoError(t, err)
	}

	// A different username from the same address is unaffected.
	status, _, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "bystander",
		"password": "Secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestSuccessfulSignInResetsCounter(t *testing.T) {
	ts := resetState(t)

	_, err := SeedUser(context.Background(), testDB.Pool, "alice", "alice@example.com", "Secret123", models.RoleUser)
	require.NoError(t, err)

	for i := 0; i < testMaxAttempts-1; i++ {
		_, _, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
			"username": "alice",
			"password": "wrong-password",
		})
		require.NoError(t, err)
	}

	status, _, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "alice",
		"password": "Secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	// The counter restarted, so a fresh failure reports the full allowance.
	status, body, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "alice",
		"password": "wrong-password",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body["message"], remainingPhrase(testMaxAttempts-1))
}

func TestUnknownUsernameGetsSameResponse(t *testing.T) {
	ts := resetState(t)

	status, body, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "ghost",
		"password": "whatever1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body["message"], "Invalid username or password")
}

func TestDisabledAccountCannotSignIn(t *testing.T) {
	ts := resetState(t)

	ctx := context.Background()
	user, err := SeedUser(ctx, testDB.Pool, "frozen", "frozen@example.com", "Secret123", models.RoleUser)
	require.NoError(t, err)
	require.NoError(t, DisableUser(ctx, testDB.Pool, user.ID))

	status, body, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "frozen",
		"password": "Secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Account is disabled", body["message"])
}

func TestRefreshFlow(t *testing.T) {
	ts := resetState(t)

	_, err := SeedUser(context.Background(), testDB.Pool, "alice", "alice@example.com", "Secret123", models.RoleUser)
	require.NoError(t, err)

	status, body, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "alice",
		"password": "Secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	refreshToken := body["refreshToken"].(string)

	status, body, err = ts.PostJSON("/api/auth/refresh", map[string]interface{}{
		"refreshToken": refreshToken,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refreshToken"])

	// Access tokens are not accepted for renewal.
	token := body["token"].(string)
	status, _, err = ts.PostJSON("/api/auth/refresh", map[string]interface{}{
		"refreshToken": token,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestListUsersRequiresAuthority(t *testing.T) {
	ts := resetState(t)

	_, err := SeedUser(context.Background(), testDB.Pool, "alice", "alice@example.com", "Secret123", models.RoleUser)
	require.NoError(t, err)

	// Unauthenticated
	status, _, err := ts.GetJSON("/api/users", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body, err := ts.PostJSON("/api/auth/signin", map[string]interface{}{
		"username": "alice",
		"password": "Secret123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)

	// USER carries user:read, so the listing is visible.
	status, body, err = ts.GetJSON("/api/users", token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
}
