package postgres

import (
	"context"
	"time"

	"github.com/crissvargas/realestate/internal/auth/domain"
	"github.com/crissvargas/realestate/internal/auth/store"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

type oneTimeCodesRepo struct {
	q querier
	// begin is set on the root store and nil inside a Tx.
	begin func(context.Context) (pgx.Tx, error)
}

func (r *oneTimeCodesRepo) ReplaceForEmail(ctx context.Context, c domain.OneTimeCode) error {
	if r.begin == nil {
		return replaceCode(ctx, r.q, c)
	}

	tx, err := r.begin(ctx)
	if err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "begin").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := replaceCode(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "commit").Wrap(err)
	}
	return nil
}

// replaceCode must run inside a transaction: the advisory lock is held
// until it ends, serializing replacements for one email.
func replaceCode(ctx context.Context, q querier, c domain.OneTimeCode) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, c.Email); err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "lock email").Wrap(err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM one_time_codes WHERE email = $1`, c.Email); err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "delete prior codes").Wrap(err)
	}
	_, err := q.Exec(ctx,
		`INSERT INTO one_time_codes (id, email, code_hash, created_at, expires_at, used)
		 VALUES ($1, $2, $3, $4, $5, FALSE)`,
		c.ID, c.Email, c.CodeHash, c.CreatedAt, c.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return oops.Code("CODE_REPLACE_FAILED").With("operation", "insert code").Wrap(err)
	}
	return nil
}

func (r *oneTimeCodesRepo) Consume(ctx context.Context, email, codeHash string, now time.Time) (domain.OneTimeCode, error) {
	var c domain.OneTimeCode
	err := r.q.QueryRow(ctx,
		`UPDATE one_time_codes SET used = TRUE
		 WHERE email = $1 AND code_hash = $2 AND used = FALSE AND expires_at > $3
		 RETURNING id, email, code_hash, created_at, expires_at, used`,
		email, codeHash, now,
	).Scan(&c.ID, &c.Email, &c.CodeHash, &c.CreatedAt, &c.ExpiresAt, &c.Used)
	if err != nil {
		if err = mapNotFound(err); err == store.ErrNotFound {
			return domain.OneTimeCode{}, err
		}
		return domain.OneTimeCode{}, oops.Code("CODE_CONSUME_FAILED").With("operation", "consume code").Wrap(err)
	}
	return c, nil
}

func (r *oneTimeCodesRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM one_time_codes WHERE id = $1`, id); err != nil {
		return oops.Code("CODE_DELETE_FAILED").With("operation", "delete code").Wrap(err)
	}
	return nil
}

func (r *oneTimeCodesRepo) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM one_time_codes WHERE used OR expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("CODE_SWEEP_FAILED").With("operation", "delete stale codes").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func (r *oneTimeCodesRepo) CountRedeemable(ctx context.Context, email string, now time.Time) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM one_time_codes WHERE email = $1 AND NOT used AND expires_at > $2`,
		email, now,
	).Scan(&n)
	if err != nil {
		return 0, oops.Code("CODE_COUNT_FAILED").With("operation", "count redeemable codes").Wrap(err)
	}
	return n, nil
}
