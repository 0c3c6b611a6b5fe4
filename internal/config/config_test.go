package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_GuardDefaults(t *testing.T) {
	// Set required env vars
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Guard.MaxAttempts != 5 {
		t.Errorf("MaxAttempts: got %d, want 5", cfg.Guard.MaxAttempts)
	}
	if cfg.Guard.AttemptWindow != 15*time.Minute {
		t.Errorf("AttemptWindow: got %v, want 15m", cfg.Guard.AttemptWindow)
	}
	if cfg.Guard.LockDuration != 30*time.Minute {
		t.Errorf("LockDuration: got %v, want 30m", cfg.Guard.LockDuration)
	}
	if cfg.RateLimit.PermitsPerSecond != 10 {
		t.Errorf("PermitsPerSecond: got %v, want 10", cfg.RateLimit.PermitsPerSecond)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("GUARD_MAX_ATTEMPTS", "3")
	os.Setenv("GUARD_LOCK_DURATION", "10m")
	os.Setenv("RATE_LIMIT_PERMITS_PER_SECOND", "25")
	os.Setenv("REDIS_ADDR", "redis.internal:6380")
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Guard.MaxAttempts != 3 {
		t.Errorf("MaxAttempts: got %d, want 3", cfg.Guard.MaxAttempts)
	}
	if cfg.Guard.LockDuration != 10*time.Minute {
		t.Errorf("LockDuration: got %v, want 10m", cfg.Guard.LockDuration)
	}
	if cfg.RateLimit.PermitsPerSecond != 25 {
		t.Errorf("PermitsPerSecond: got %v, want 25", cfg.RateLimit.PermitsPerSecond)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr: got %q", cfg.Redis.Addr)
	}
	if len(cfg.Server.TrustedProxies) != 2 || cfg.Server.TrustedProxies[1] != "172.16.0.0/12" {
		t.Errorf("TrustedProxies: got %v", cfg.Server.TrustedProxies)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without JWT_SECRET")
	}
}

func TestLoad_RejectsShortJWTSecretInProduction(t *testing.T) {
	os.Setenv("JWT_SECRET", "short-secret-16c")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a 16-character secret in production")
	}
}
