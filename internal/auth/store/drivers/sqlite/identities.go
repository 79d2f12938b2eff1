package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/crissvargas/realestate/internal/auth/domain"
	"github.com/crissvargas/realestate/internal/auth/store"
	"github.com/crissvargas/realestate/internal/auth/store/drivers/sqlite/gen"
	"github.com/samber/oops"
)

type identitiesRepo struct {
	q *gen.Queries
}

func (r *identitiesRepo) Create(ctx context.Context, i domain.Identity) error {
	err := r.q.CreateIdentity(ctx, gen.CreateIdentityParams{
		ID:           i.ID,
		DisplayName:  nullString(i.DisplayName),
		Email:        i.Email,
		PasswordHash: nullString(i.PasswordHash),
		AuthMode:     string(i.AuthMode),
		Active:       i.Active,
		CreatedAt:    toMillis(i.CreatedAt),
		UpdatedAt:    toMillis(i.UpdatedAt),
	})
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return oops.Code("IDENTITY_CREATE_FAILED").With("operation", "create identity").Wrap(err)
	}
	return nil
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByID(ctx, id)
	if err != nil {
		return domain.Identity{}, wrapLookup(mapNotFound(err), "get identity by id")
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByEmail(ctx, email)
	if err != nil {
		return domain.Identity{}, wrapLookup(mapNotFound(err), "get identity by email")
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) TouchLastAuthenticated(ctx context.Context, id string, at time.Time) error {
	n, err := r.q.TouchIdentityLastAuthenticated(ctx, gen.TouchIdentityLastAuthenticatedParams{
		LastAuthenticatedAt: sql.NullInt64{Int64: toMillis(at), Valid: true},
		UpdatedAt:           toMillis(at),
		ID:                  id,
	})
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_FAILED").With("operation", "touch last authenticated").Wrap(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id string, hash string, at time.Time) error {
	n, err := r.q.UpdateIdentityPasswordHash(ctx, gen.UpdateIdentityPasswordHashParams{
		PasswordHash: sql.NullString{String: hash, Valid: true},
		UpdatedAt:    toMillis(at),
		ID:           id,
	})
	if err != nil {
		return oops.Code("IDENTITY_UPDATE_FAILED").With("operation", "update password hash").Wrap(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func wrapLookup(err error, operation string) error {
	if err == store.ErrNotFound {
		return err
	}
	return oops.Code("IDENTITY_LOOKUP_FAILED").With("operation", operation).Wrap(err)
}
