package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shopfloor/gatekeeper/internal/auth"
	"github.com/shopfloor/gatekeeper/internal/guard"
	"github.com/shopfloor/gatekeeper/internal/handlers"
	"github.com/shopfloor/gatekeeper/internal/repositories"
	"github.com/shopfloor/gatekeeper/internal/routes"
	"github.com/shopfloor/gatekeeper/internal/services"
	pkghttp "github.com/shopfloor/gatekeeper/pkg/http"
	pkglogger "github.com/shopfloor/gatekeeper/pkg/logger"
)

const (
	testJWTSecret    = "integration-secret-32-chars-ok!!"
	testMaxAttempts  = 5
	testLockDuration = 30 * time.Minute
)

// memoryStore is an in-process attempt tracker so integration tests do not
// need a Redis container alongside PostgreSQL.
type memoryStore struct {
	mu      sync.Mutex
	values  map[string]int64
	raw     map[string]string
	expires map[string]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		values:  make(map[string]int64),
		raw:     make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

func (s *memoryStore) expired(key string) bool {
	deadline, ok := s.expires[key]
	return ok && time.Now().After(deadline)
}

func (s *memoryStore) purge(key string) {
	delete(s.values, key)
	delete(s.raw, key)
	delete(s.expires, key)
}

func (s *memoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired(key) {
		s.purge(key)
	}
	s.values[key]++
	return s.values[key], nil
}

func (s *memoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[key] = time.Now().Add(ttl)
	return nil
}

func (s *memoryStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[key] = value
	s.expires[key] = time.Now().Add(ttl)
	return nil
}

func (s *memoryStore) GetInt(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired(key) {
		s.purge(key)
	}
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *memoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired(key) {
		s.purge(key)
	}
	_, inValues := s.values[key]
	_, inRaw := s.raw[key]
	return inValues || inRaw, nil
}

func (s *memoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.purge(key)
	}
	return nil
}

// TestServer wraps httptest.Server with the full handler stack over a real
// database and an in-memory attempt tracker.
type TestServer struct {
	Server *httptest.Server
	Store  *memoryStore
	Guard  *guard.BruteForceGuard
}

// NewTestServer wires repositories, guard, services and routes the same way
// the real entrypoint does, minus the global request limiter.
func NewTestServer(testDB *TestDB) *TestServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := newMemoryStore()
	bruteForceGuard := guard.NewBruteForceGuard(store, guard.Config{
		MaxAttempts:   testMaxAttempts,
		AttemptWindow: 15 * time.Minute,
		LockDuration:  testLockDuration,
	}, logger)

	userRepo := repositories.NewUserRepository(testDB.DB)
	roleRepo := repositories.NewRoleRepository(testDB.DB)

	tokenManager := auth.NewTokenManager(testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(userRepo, roleRepo, bruteForceGuard, tokenManager, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger)

	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(authService, ipConfig, testLockDuration)
	userHandler := handlers.NewUserHandler(userService)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Route("/api", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, userHandler, tokenManager, 100, ipConfig)
	})

	return &TestServer{
		Server: httptest.NewServer(router),
		Store:  store,
		Guard:  bruteForceGuard,
	}
}

func (ts *TestServer) Close() {
	ts.Server.Close()
}

// PostJSON sends a JSON POST and decodes the response body into a map
func (ts *TestServer) PostJSON(path string, payload interface{}) (int, map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	resp, err := http.Post(ts.Server.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	decoded, err := decodeBody(resp)
	return resp.StatusCode, decoded, err
}

// GetJSON sends a GET with an optional bearer token
func (ts *TestServer) GetJSON(path, token string) (int, map[string]interface{}, error) {
	req, err := http.NewRequest("GET", ts.Server.URL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	decoded, err := decodeBody(resp)
	return resp.StatusCode, decoded, err
}

func decodeBody(resp *http.Response) (map[string]interface{}, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return map[string]interface{}{}, nil
	}

	// List endpoints return arrays; wrap them for uniform assertions.
	if strings.HasPrefix(trimmed, "[") {
		var items []interface{}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode array body %q: %w", trimmed, err)
		}
		return map[string]interface{}{"items": items}, nil
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode body %q: %w", trimmed, err)
	}
	return body, nil
}
