package store

import (
	"context"
	"errors"
	"time"

	"github.com/crissvargas/realestate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories hang off the store, and a Tx exposes the same
// repositories bound to one transaction, so callers can't nest transactions
// by accident.
type Store interface {
	Identities() Identities
	OneTimeCodes() OneTimeCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// Create inserts a new identity. Returns ErrAlreadyExists when the
	// email is taken; the existing row is left untouched.
	Create(ctx context.Context, i domain.Identity) error

	GetByID(ctx context.Context, id string) (domain.Identity, error)

	// GetByEmail matches the address exactly, including case.
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)

	// TouchLastAuthenticated sets last_authenticated_at and updated_at.
	TouchLastAuthenticated(ctx context.Context, id string, at time.Time) error

	// UpdatePasswordHash replaces the stored hash, used when upgrading
	// legacy or outdated hashes after a successful login.
	UpdatePasswordHash(ctx context.Context, id string, hash string, at time.Time) error
}

type OneTimeCodes interface {
	// ReplaceForEmail deletes every code for c.Email and inserts c as one
	// atomic step. Concurrent calls for the same email serialize, leaving
	// exactly one code behind.
	ReplaceForEmail(ctx context.Context, c domain.OneTimeCode) error

	// Consume marks the matching unused, unexpired code as used and returns
	// it. Only one of several concurrent callers can win; the rest get
	// ErrNotFound, as do callers with a wrong, spent or expired code.
	Consume(ctx context.Context, email, codeHash string, now time.Time) (domain.OneTimeCode, error)

	// DeleteByID removes a code regardless of state. Deleting a missing
	// code is not an error.
	DeleteByID(ctx context.Context, id string) error

	// DeleteStale removes used codes and codes with expires_at <= now,
	// returning how many rows went.
	DeleteStale(ctx context.Context, now time.Time) (int64, error)

	// CountRedeemable counts unused codes for email that expire after now.
	CountRedeemable(ctx context.Context, email string, now time.Time) (int64, error)
}
