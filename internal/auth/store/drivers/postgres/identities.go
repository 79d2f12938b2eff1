package postgres

import (
	"context"
	"time"

	"github.com/crissvargas/realestate/internal/auth/domain"
	"github.com/crissvargas/realestate/internal/auth/store"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

const identityColumns = `id, display_name, email, password_hash, auth_mode, active,
       last_authenticated_at, created_at, updated_at`

type identitiesRepo struct {
	q querier
}

func (r *identitiesRepo) Create(ctx context.Context, i domain.Identity) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO identities (id, display_name, email, password_hash, auth_mode, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		i.ID, i.DisplayName, i.Email, i.PasswordHash, string(i.AuthMode), i.Active, i.CreatedAt, i.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return oops.Code("IDENTITY_CREATE_FAILED").With("operation", "create identity").Wrap(err)
	}
	return nil
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.q.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row, "get identity by id")
}

func (r *identitiesRepo) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row := r.q.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return scanIdentity(row, "get identity by email")
}

func (r *identitiesRepo) TouchLastAuthenticated(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE identities SET last_authenticated_at = $1, updated_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_FAILED").With("operation", "touch last authenticated").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id string, hash string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE identities SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		hash, at, id,
	)
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_FAILED").With("operation", "update password hash").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanIdentity(row pgx.Row, operation string) (domain.Identity, error) {
	var (
		i    domain.Identity
		mode string
	)
	err := row.Scan(
		&i.ID,
		&i.DisplayName,
		&i.Email,
		&i.PasswordHash,
		&mode,
		&i.Active,
		&i.LastAuthenticatedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if err = mapNotFound(err); err == store.ErrNotFound {
			return domain.Identity{}, err
		}
		return domain.Identity{}, oops.Code("IDENTITY_LOOKUP_FAILED").With("operation", operation).Wrap(err)
	}
	i.AuthMode = domain.AuthMode(mode)
	return i, nil
}
