package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopfloor/gatekeeper/internal/auth"
	"github.com/shopfloor/gatekeeper/internal/models"
	"github.com/shopfloor/gatekeeper/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithClaims(method, path string, claims *models.TokenClaims) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if claims != nil {
		ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
		req = req.WithContext(ctx)
	}
	return req
}

func TestMe_ReturnsProfile(t *testing.T) {
	service := &MockUserService{
		GetProfileFunc: func(ctx context.Context, id string) (*services.UserResponse, error) {
			require.Equal(t, "user-1", id)
			return &services.UserResponse{
				ID:       "user-1",
				Username: "alice",
				Email:    "alice@example.com",
				Status:   models.StatusActive,
				Roles:    []string{"USER"},
			}, nil
		},
	}
	handler := NewUserHandler(service)

	claims := &models.TokenClaims{
		UserID:           "user-1",
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}
	recorder := httptest.NewRecorder()
	handler.Me(recorder, requestWithClaims("GET", "/api/users/me", claims))

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp services.UserResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, []string{"USER"}, resp.Roles)
}

func TestMe_NoClaims(t *testing.T) {
	handler := NewUserHandler(&MockUserService{})

	recorder := httptest.NewRecorder()
	handler.Me(recorder, requestWithClaims("GET", "/api/users/me", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestMe_AccountGone(t *testing.T) {
	service := &MockUserService{
		GetProfileFunc: func(ctx context.Context, id string) (*services.UserResponse, error) {
			return nil, models.ErrNotFound
		},
	}
	handler := NewUserHandler(service)

	claims := &models.TokenClaims{UserID: "user-1"}
	recorder := httptest.NewRecorder()
	handler.Me(recorder, requestWithClaims("GET", "/api/users/me", claims))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestList_ReturnsUsers(t *testing.T) {
	service := &MockUserService{
		ListUsersFunc: func(ctx context.Context, limit, offset int) ([]*services.UserResponse, error) {
			assert.Equal(t, 5, limit)
			assert.Equal(t, 10, offset)
			return []*services.UserResponse{
				{ID: "user-1", Username: "alice"},
				{ID: "user-2", Username: "bob"},
			}, nil
		},
	}
	handler := NewUserHandler(service)

	req := httptest.NewRequest("GET", "/api/users?limit=5&offset=10", nil)
	recorder := httptest.NewRecorder()
	handler.List(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp []*services.UserResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "alice", resp[0].Username)
}

func TestList_DefaultsOnBadParams(t *testing.T) {
	service := &MockUserService{
		ListUsersFunc: func(ctx context.Context, limit, offset int) ([]*services.UserResponse, error) {
			assert.Equal(t, 20, limit)
			assert.Equal(t, 0, offset)
			return []*services.UserResponse{}, nil
		},
	}
	handler := NewUserHandler(service)

	req := httptest.NewRequest("GET", "/api/users?limit=abc&offset=", nil)
	recorder := httptest.NewRecorder()
	handler.List(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}
