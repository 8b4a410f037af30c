package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClassificationBank gates the reference-number and reference-date fields:
// bank-like payment methods need them, everything else does not.
const ClassificationBank = "Bank"

// ModeDirectory resolves a payment method's classification.
type ModeDirectory interface {
	Classification(ctx context.Context, mode string) (string, error)
}

// CachedDirectory caches classification lookups in Redis in front of a
// slower backing directory. Classifications change rarely.
type CachedDirectory struct {
	backing ModeDirectory
	client  *redis.Client
	ttl     time.Duration
}

// NewCachedDirectory wraps backing with a Redis cache. A nil client
// degrades to pass-through lookups.
func NewCachedDirectory(backing ModeDirectory, client *redis.Client, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{backing: backing, client: client, ttl: ttl}
}

func (d *CachedDirectory) cacheKey(mode string) string {
	return fmt.Sprintf("payments:mode:%s", mode)
}

// Classification returns the cached classification, falling through to the
// backing directory on a miss.
func (d *CachedDirectory) Classification(ctx context.Context, mode string) (string, error) {
	if d.client != nil {
		cached, err := d.client.Get(ctx, d.cacheKey(mode)).Result()
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			return "", fmt.Errorf("mode classification cache: %w", err)
		}
	}

	classification, err := d.backing.Classification(ctx, mode)
	if err != nil {
		return "", err
	}
	if d.client != nil {
		if err := d.client.Set(ctx, d.cacheKey(mode), classification, d.ttl).Err(); err != nil {
			return "", fmt.Errorf("mode classification cache: %w", err)
		}
	}
	return classification, nil
}

// IsBank reports whether the mode's classification is bank-like. A failed
// lookup counts as non-bank so the flow keeps working with the reference
// fields hidden instead of blocking the payment.
func IsBank(ctx context.Context, dir ModeDirectory, logger *slog.Logger, mode string) bool {
	if mode == "" {
		return false
	}
	classification, err := dir.Classification(ctx, mode)
	if err != nil {
		logger.Warn("mode classification lookup failed",
			slog.String("mode", mode),
			slog.Any("error", err),
		)
		return false
	}
	return classification == ClassificationBank
}
