package midtranswebhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const provider = "midtrans"

// GuardStore is the redis surface the guard needs.
type GuardStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookKey(provider, fingerprint string) string
}

// IdempotencyGuard short-circuits exact replays of a notification body.
type IdempotencyGuard struct {
	store GuardStore
	ttl   time.Duration
}

func NewIdempotencyGuard(store GuardStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// Fingerprint is the hex sha256 of the raw body.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CheckAndMark records the fingerprint and reports whether it was already seen.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, errors.New("fingerprint is required")
	}
	set, err := g.store.SetNX(ctx, g.store.WebhookKey(provider, fingerprint), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set webhook key: %w", err)
	}
	return !set, nil
}

// Delete forgets the fingerprint so a failed notification can be retried.
func (g *IdempotencyGuard) Delete(ctx context.Context, fingerprint string) error {
	if fingerprint == "" {
		return errors.New("fingerprint is required")
	}
	return g.store.Del(ctx, g.store.WebhookKey(provider, fingerprint))
}
