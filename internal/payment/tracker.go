package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mococa-backend/internal/logger"
)

const (
	keyPrefix = "payment:"

	// TTL mirrors the provider-side expiration window, so an entry the
	// poller never resolves still falls out of the ledger on its own.
	TTL = 5 * 24 * time.Hour
)

// entry is what the ledger remembers about a pending payment.
type entry struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// Resolution is a ledger entry that reached a terminal state.
type Resolution struct {
	ID     string
	Code   string
	Status Status
}

// PollResult splits one reconciliation pass into paid entries and
// entries that can no longer be paid.
type PollResult struct {
	Successes []Resolution
	Failures  []Resolution
}

// Tracker owns the pending-payment ledger. Payments are created through
// it and reconciled by Poll; nothing else mutates the ledger.
type Tracker struct {
	client   *redis.Client
	provider Provider
}

func NewTracker(client *redis.Client, provider Provider) *Tracker {
	return &Tracker{
		client:   client,
		provider: provider,
	}
}

func key(id string) string {
	return keyPrefix + id
}

// CreatePayment requests a new QR payment and records it in the ledger.
func (t *Tracker) CreatePayment(ctx context.Context, amountCents int64) (*Charge, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("payment: amount must be positive")
	}

	charge, err := t.provider.CreateCharge(ctx, amountCents)
	if err != nil {
		return nil, fmt.Errorf("payment: create charge failed: %w", err)
	}

	data, err := json.Marshal(entry{ID: charge.ID, Code: charge.Code})
	if err != nil {
		return nil, fmt.Errorf("payment: failed to marshal ledger entry: %w", err)
	}

	if err := t.client.Set(ctx, key(charge.ID), data, TTL).Err(); err != nil {
		return nil, fmt.Errorf("payment: failed to record ledger entry: %w", err)
	}

	return charge, nil
}

// Poll walks the whole ledger and reconciles each entry against the
// provider. Terminal entries are removed exactly once per their final
// classification; entries the provider still reports pending stay put.
// A per-entry provider error is logged and skipped so the rest of the
// scan proceeds; that entry is retried on the next pass.
//
// Removal is a plain DEL: a duplicate concurrent poll could at worst
// turn the second removal into a no-op, which is accepted. The shipped
// scheduler runs polls sequentially, so this does not occur in practice.
func (t *Tracker) Poll(ctx context.Context) (*PollResult, error) {
	result := &PollResult{}

	iter := t.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()

		val, err := t.client.Get(ctx, k).Result()
		if err == redis.Nil {
			continue // expired between scan and read
		}
		if err != nil {
			logger.Error("payment ledger read failed", map[string]any{
				"key":   k,
				"error": err.Error(),
			})
			continue
		}

		var e entry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			logger.Error("payment ledger entry corrupt, dropping", map[string]any{
				"key":   k,
				"error": err.Error(),
			})
			_ = t.client.Del(ctx, k).Err()
			continue
		}

		charge, err := t.provider.ChargeStatus(ctx, e.ID)
		if err != nil {
			logger.Warn("payment status check failed", map[string]any{
				"id":    e.ID,
				"error": err.Error(),
			})
			continue
		}

		resolution := Resolution{ID: e.ID, Code: e.Code, Status: charge.Status}

		switch {
		case charge.Status == StatusExpired,
			charge.Status == StatusCancelled,
			charge.Status == StatusRefunded:
			result.Failures = append(result.Failures, resolution)

		case !charge.ExpiresAt.IsZero() && time.Now().After(charge.ExpiresAt):
			// locally detected expiry pre-empts a stale provider status
			resolution.Status = StatusExpired
			result.Failures = append(result.Failures, resolution)

		case charge.Status != StatusPaid:
			continue // still pending, leave in the ledger

		default:
			result.Successes = append(result.Successes, resolution)
		}

		if err := t.client.Del(ctx, k).Err(); err != nil {
			logger.Error("payment ledger delete failed", map[string]any{
				"id":    e.ID,
				"error": err.Error(),
			})
		}
	}

	if err := iter.Err(); err != nil {
		return result, fmt.Errorf("payment: ledger scan failed: %w", err)
	}

	return result, nil
}
