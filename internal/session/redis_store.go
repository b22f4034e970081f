package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mococa-backend/internal/logger"
)

// TTL is the sliding session lifetime applied on create and refresh.
const TTL = 24 * time.Hour

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store. Tokens produced by
// GenerateID are already namespaced, so they are used verbatim as keys.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Create(
	ctx context.Context,
	userID string,
	role Role,
	status Status,
) (string, error) {

	if userID == "" {
		return "", fmt.Errorf("session: missing user_id")
	}

	sessionID, err := GenerateID()
	if err != nil {
		return "", err
	}

	s := Session{
		UserID:    userID,
		Role:      role,
		Status:    status,
		ExpiresAt: time.Now().Add(TTL),
	}

	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("session: failed to marshal: %w", err)
	}

	if err := r.client.Set(ctx, sessionID, data, TTL).Err(); err != nil {
		return "", err
	}

	return sessionID, nil
}

// Get resolves a session token. Store errors and corrupt values are logged
// and reported as absent, never propagated: a session the store cannot
// produce a valid record for does not exist as far as callers are concerned.
//
// An expired-but-present record (possible under clock skew between app and
// Redis) is deleted on read rather than trusted to the store's own TTL.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if !ValidID(sessionID) {
		return nil, nil
	}

	val, err := r.client.Get(ctx, sessionID).Result()
	if err == redis.Nil {
		return nil, nil // not found
	}
	if err != nil {
		logger.Error("session read failed", map[string]any{
			"error": err.Error(),
		})
		return nil, nil
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		logger.Error("session unmarshal failed", map[string]any{
			"error": err.Error(),
		})
		return nil, nil
	}

	s.SessionID = sessionID

	if s.Expired() {
		_ = r.client.Del(ctx, sessionID).Err()
		return nil, nil
	}

	return &s, nil
}

// Delete is idempotent; a token that could never name a session is as
// absent as a deleted one and must not address any other key.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if !ValidID(sessionID) {
		return nil
	}
	return r.client.Del(ctx, sessionID).Err()
}

// Refresh extends a live session by the full TTL. Absent sessions are left
// absent; role and status are never touched here.
func (r *RedisStore) Refresh(ctx context.Context, sessionID string) error {
	s, err := r.Get(ctx, sessionID)
	if err != nil || s == nil {
		return err
	}

	s.ExpiresAt = time.Now().Add(TTL)

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	return r.client.Set(ctx, sessionID, data, TTL).Err()
}
