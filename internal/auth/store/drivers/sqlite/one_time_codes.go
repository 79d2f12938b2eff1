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

type oneTimeCodesRepo struct {
	q *gen.Queries
	// begin is set on the root store and nil inside a Tx.
	begin func(context.Context, *sql.TxOptions) (*sql.Tx, error)
}

func (r *oneTimeCodesRepo) ReplaceForEmail(ctx context.Context, c domain.OneTimeCode) error {
	if r.begin == nil {
		return replaceCode(ctx, r.q, c)
	}

	tx, err := r.begin(ctx, nil)
	if err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "begin").Wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceCode(ctx, r.q.WithTx(tx), c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "commit").Wrap(err)
	}
	return nil
}

func replaceCode(ctx context.Context, q *gen.Queries, c domain.OneTimeCode) error {
	if err := q.DeleteOneTimeCodesByEmail(ctx, c.Email); err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "delete prior codes").Wrap(err)
	}
	err := q.CreateOneTimeCode(ctx, gen.CreateOneTimeCodeParams{
		ID:        c.ID,
		Email:     c.Email,
		CodeHash:  c.CodeHash,
		CreatedAt: toMillis(c.CreatedAt),
		ExpiresAt: toMillis(c.ExpiresAt),
	})
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "insert code").Wrap(err)
	}
	return nil
}

func (r *oneTimeCodesRepo) Consume(ctx context.Context, email, codeHash string, now time.Time) (domain.OneTimeCode, error) {
	row, err := r.q.ConsumeOneTimeCode(ctx, gen.ConsumeOneTimeCodeParams{
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: toMillis(now),
	})
	if err != nil {
		if err = mapNotFound(err); err == store.ErrNotFound {
			return domain.OneTimeCode{}, err
		}
		return domain.OneTimeCode{}, oops.Code("CODE_CONSUME_FAILED").With("operation", "consume code").Wrap(err)
	}
	return mapOneTimeCode(row), nil
}

func (r *oneTimeCodesRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.q.DeleteOneTimeCode(ctx, id); err != nil {
		return oops.Code("CODE_DELETE_FAILED").With("operation", "delete code").Wrap(err)
	}
	return nil
}

func (r *oneTimeCodesRepo) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.q.DeleteStaleOneTimeCodes(ctx, toMillis(now))
	if err != nil {
		return 0, oops.Code("CODE_SWEEP_FAILED").With("operation", "delete stale codes").Wrap(err)
	}
	return n, nil
}

func (r *oneTimeCodesRepo) CountRedeemable(ctx context.Context, email string, now time.Time) (int64, error) {
	n, err := r.q.CountRedeemableOneTimeCodes(ctx, gen.CountRedeemableOneTimeCodesParams{
		Email:     email,
		ExpiresAt: toMillis(now),
	})
	if err != nil {
		return 0, oops.Code("CODE_COUNT_FAILED").With("operation", "count redeemable codes").Wrap(err)
	}
	return n, nil
}
