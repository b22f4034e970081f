package resolver

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"mococa-backend/internal/auth"
	"mococa-backend/internal/session"
)

// DBResolver resolves profiles against Postgres. New users start as
// role=user, status=active; role/status changes happen elsewhere.
type DBResolver struct {
	db *sql.DB
}

func NewDBResolver(db *sql.DB) *DBResolver {
	return &DBResolver{db: db}
}

func (r *DBResolver) Resolve(
	ctx context.Context,
	profile *auth.Profile,
) (*Account, error) {

	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// 1. Try identity lookup (provider + provider_user_id)
	var (
		userID uuid.UUID
		role   session.Role
		status session.Status
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.role, u.status
		FROM public.users u
		JOIN public.identities i ON i.user_id = u.id
		WHERE i.provider = $1
		  AND i.provider_user_id = $2
	`,
		profile.Provider,
		profile.ID,
	).Scan(&userID, &role, &status)

	if err == nil {
		return &Account{UserID: userID.String(), Role: role, Status: status}, nil
	}

	if err != sql.ErrNoRows {
		return nil, err
	}

	// 2. Try email-based linking (existing user, new provider)
	err = r.db.QueryRowContext(ctx, `
		SELECT id, role, status
		FROM public.users
		WHERE LOWER(email) = LOWER($1)
	`,
		profile.Email,
	).Scan(&userID, &role, &status)

	if err == nil {
		if err := r.linkIdentity(ctx, userID, profile); err != nil {
			return nil, err
		}
		return &Account{UserID: userID.String(), Role: role, Status: status}, nil
	}

	if err != sql.ErrNoRows {
		return nil, err
	}

	// 3. Create new user
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO public.users (name, email, picture, role, status)
		VALUES ($1, $2, $3, 'user', 'active')
		RETURNING id
	`,
		profile.Name,
		profile.Email,
		profile.Picture,
	).Scan(&userID)

	if err != nil {
		return nil, err
	}

	// 4. Create identity mapping
	if err := r.linkIdentity(ctx, userID, profile); err != nil {
		return nil, err
	}

	return &Account{
		UserID:  userID.String(),
		Role:    session.RoleUser,
		Status:  session.StatusActive,
		Created: true,
	}, nil
}

func (r *DBResolver) linkIdentity(
	ctx context.Context,
	userID uuid.UUID,
	profile *auth.Profile,
) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO public.identities (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
	`,
		userID,
		profile.Provider,
		profile.ID,
	)
	return err
}
