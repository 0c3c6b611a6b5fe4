package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopfloor/gatekeeper/internal/auth"
	"github.com/shopfloor/gatekeeper/internal/config"
	"github.com/shopfloor/gatekeeper/internal/database"
	"github.com/shopfloor/gatekeeper/internal/guard"
	"github.com/shopfloor/gatekeeper/internal/handlers"
	"github.com/shopfloor/gatekeeper/internal/kv"
	middlewareCustom "github.com/shopfloor/gatekeeper/internal/middleware"
	"github.com/shopfloor/gatekeeper/internal/models"
	"github.com/shopfloor/gatekeeper/internal/repositories"
	"github.com/shopfloor/gatekeeper/internal/routes"
	"github.com/shopfloor/gatekeeper/internal/services"
	pkgauth "github.com/shopfloor/gatekeeper/pkg/auth"
	pkghttp "github.com/shopfloor/gatekeeper/pkg/http"
	pkglogger "github.com/shopfloor/gatekeeper/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize the attempt tracker store
	kvClient, err := kv.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer kvClient.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)

	// Brute-force guard over the attempt tracker
	bruteForceGuard := guard.NewBruteForceGuard(kvClient, guard.Config{
		MaxAttempts:   cfg.Guard.MaxAttempts,
		AttemptWindow: cfg.Guard.AttemptWindow,
		LockDuration:  cfg.Guard.LockDuration,
	}, logger)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	authService := services.NewAuthService(userRepo, roleRepo, bruteForceGuard, tokenManager, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger)

	// Client address resolution shared by the limiter, guard and handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, ipConfig, cfg.Guard.LockDuration)
	userHandler := handlers.NewUserHandler(userService)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, roleRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	rateLimiter := middlewareCustom.NewClientRateLimiter(cfg.RateLimit.PermitsPerSecond, ipConfig)

	// Setup router. The request rate limiter runs first so rejected
	// requests cost nothing downstream.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(rateLimiter.Middleware)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	router.Route("/api", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, userHandler, tokenManager, cfg.RateLimit.SignupPerMinute, ipConfig)
	})

	// Health check covering both stores
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus, redisStatus := "up", "up"
		if err := db.HealthCheck(ctx); err != nil {
			dbStatus = "down"
		}
		if err := kvClient.HealthCheck(ctx); err != nil {
			redisStatus = "down"
		}

		status := http.StatusOK
		overall := "healthy"
		if dbStatus == "down" || redisStatus == "down" {
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
		}

		pkghttp.WriteJSON(w, status, map[string]string{
			"status":   overall,
			"database": dbStatus,
			"redis":    redisStatus,
		})
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first super admin if ADMIN_USERNAME, ADMIN_EMAIL
// and ADMIN_PASSWORD are set and no such user exists yet.
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, roleRepo *repositories.RoleRepository, logger *slog.Logger) error {
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminEmail == "" || adminPassword == "" {
		logger.Info("no admin bootstrap credentials set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByUsername(ctx, adminUsername)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	role, err := roleRepo.FindByCode(ctx, models.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("failed to resolve super admin role: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     adminUsername,
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Status:       models.StatusActive,
		Roles:        []models.Role{*role},
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
