package guard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopfloor/gatekeeper/internal/kv"
)

// Key namespaces in the attempt tracker. Counters live under
// login_attempts:{username}:{address} with the attempt-window TTL; lock
// sentinels live under locked:{username}:{address} with the lock TTL.
const (
	attemptKeyPrefix = "login_attempts:"
	lockKeyPrefix    = "locked:"

	lockSentinel = "LOCKED"
)

// Config holds the brute-force thresholds.
type Config struct {
	MaxAttempts   int
	AttemptWindow time.Duration
	LockDuration  time.Duration
}

// DefaultConfig returns the production thresholds: five failures inside a
// fifteen-minute window lock the (username, address) pair for thirty minutes.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		LockDuration:  30 * time.Minute,
	}
}

// BruteForceGuard tracks failed signin attempts per (username, client
// address) pair and locks the pair out once the failure threshold is hit.
// Counting and locking are separate records so the counter survives a lock
// informationally and the lock duration is independent of the attempt window.
type BruteForceGuard struct {
	store  kv.Store
	config Config
	logger *slog.Logger
}

// NewBruteForceGuard creates a guard over the given attempt-tracker store.
func NewBruteForceGuard(store kv.Store, config Config, logger *slog.Logger) *BruteForceGuard {
	return &BruteForceGuard{
		store:  store,
		config: config,
		logger: logger,
	}
}

func attemptKey(username, address string) string {
	return fmt.Sprintf("%s%s:%s", attemptKeyPrefix, username, address)
}

func lockKey(username, address string) string {
	return fmt.Sprintf("%s%s:%s", lockKeyPrefix, username, address)
}

// IsLocked reports whether a non-expired lockout record exists for the pair.
// Side-effect-free.
func (g *BruteForceGuard) IsLocked(ctx context.Context, username, address string) (bool, error) {
	return g.store.Exists(ctx, lockKey(username, address))
}

// RecordFailure registers a failed signin attempt. While the pair is locked
// this is a no-op: the lock is neither extended nor recounted. Otherwise the
// counter is incremented atomically; the first failure in a window arms the
// window TTL, and reaching the threshold creates the lockout record.
func (g *BruteForceGuard) RecordFailure(ctx context.Context, username, address string) error {
	locked, err := g.IsLocked(ctx, username, address)
	if err != nil {
		return err
	}
	if locked {
		return nil
	}

	key := attemptKey(username, address)

	attempts, err := g.store.Incr(ctx, key)
	if err != nil {
		return err
	}

	if attempts == 1 {
		if err := g.store.Expire(ctx, key, g.config.AttemptWindow); err != nil {
			return err
		}
	}

	if attempts >= int64(g.config.MaxAttempts) {
		if err := g.store.SetEx(ctx, lockKey(username, address), lockSentinel, g.config.LockDuration); err != nil {
			return err
		}
		g.logger.Warn("account locked after repeated signin failures",
			slog.String("username", username),
			slog.String("address", address),
			slog.Int64("attempts", attempts),
			slog.Duration("lock_duration", g.config.LockDuration))
	}

	return nil
}

// RecordSuccess clears the failure counter and any lockout record for the
// pair. Safe to call when neither exists.
func (g *BruteForceGuard) RecordSuccess(ctx context.Context, username, address string) error {
	return g.store.Del(ctx, attemptKey(username, address), lockKey(username, address))
}

// RemainingAttempts returns how many failures the pair can still afford
// before lockout; the full allowance when no counter exists.
func (g *BruteForceGuard) RemainingAttempts(ctx context.Context, username, address string) (int, error) {
	attempts, ok, err := g.store.GetInt(ctx, attemptKey(username, address))
	if err != nil {
		return 0, err
	}
	if !ok {
		return g.config.MaxAttempts, nil
	}

	remaining := g.config.MaxAttempts - int(attempts)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// LockDuration exposes the configured lock duration for user-facing
// wait-time hints.
func (g *BruteForceGuard) LockDuration() time.Duration {
	return g.config.LockDuration
}

// MaxAttempts exposes the configured failure threshold.
func (g *BruteForceGuard) MaxAttempts() int {
	return g.config.MaxAttempts
}
