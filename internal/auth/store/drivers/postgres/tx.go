package postgres

import (
	"context"
	"errors"

	"github.com/crissvargas/realestate/internal/auth/store"
	"github.com/jackc/pgx/v5"
)

var errNestedTx = errors.New("postgres: nested transactions are not supported")

// txStore binds the repos to one pgx transaction. ctx is the context the
// transaction was started with; Commit and Rollback reuse it.
type txStore struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txStore) Rollback() error { return t.tx.Rollback(t.ctx) }

func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, errNestedTx
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errNestedTx
}

func (t *txStore) Identities() store.Identities     { return &identitiesRepo{q: t.tx} }
func (t *txStore) OneTimeCodes() store.OneTimeCodes { return &oneTimeCodesRepo{q: t.tx} }
