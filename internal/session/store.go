package session

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBanned   Status = "banned"
)

// Session represents an authenticated user session.
// It intentionally stores only identity pointers, not auth state.
type Session struct {
	SessionID string    `json:"-"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"` // absolute expiry time
}

// Expired reports whether the session is past its absolute expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store defines how sessions are stored and retrieved.
// Implementations (e.g., Redis) must remain stateless and opaque.
//
// Get returns nil for absent, expired, and unreadable sessions alike;
// the caller cannot distinguish the cases and must not need to.
type Store interface {
	Create(ctx context.Context, userID string, role Role, status Status) (string, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	Refresh(ctx context.Context, sessionID string) error
}
