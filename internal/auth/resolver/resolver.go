package resolver

import (
	"context"

	"mococa-backend/internal/auth"
	"mococa-backend/internal/session"
)

// Account is the durable user record a profile resolves to.
// Created reports whether this resolution registered a new user.
type Account struct {
	UserID  string
	Role    session.Role
	Status  session.Status
	Created bool
}

// Resolver determines which internal user an external profile belongs to.
// It is the ONLY place where identity-to-user mapping logic lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		profile *auth.Profile,
	) (*Account, error)
}
