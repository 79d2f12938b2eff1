package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crissvargas/realestate/internal/auth/domain"
	"github.com/crissvargas/realestate/internal/auth/store"
	"github.com/crissvargas/realestate/internal/auth/store/drivers/postgres"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var identityCols = []string{
	"id", "display_name", "email", "password_hash", "auth_mode", "active",
	"last_authenticated_at", "created_at", "updated_at",
}

var codeCols = []string{"id", "email", "code_hash", "created_at", "expires_at", "used"}

func ptr[T any](v T) *T { return &v }

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *postgres.Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, postgres.New(mock, "postgres://localhost/auth")
}

func TestIdentitiesCreate(t *testing.T) {
	identity := domain.Identity{
		ID:           "01HZX0000000000000000000AA",
		DisplayName:  ptr("Jane"),
		Email:        "jane@example.com",
		PasswordHash: ptr("$argon2id$hash"),
		AuthMode:     domain.AuthModePassword,
		Active:       true,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "inserts",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO identities`).
					WithArgs(identity.ID, identity.DisplayName, identity.Email, identity.PasswordHash,
						"password", true, t0, t0).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO identities`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: store.ErrAlreadyExists,
		},
		{
			name: "other failure is wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO identities`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.CheckViolation})
			},
			wantCode: "IDENTITY_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, s := newMock(t)
			tt.setupMock(mock)

			err := s.Identities().Create(context.Background(), identity)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode != "":
				oopsErr, ok := oops.AsOops(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, oopsErr.Code())
			default:
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestIdentitiesGetByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, s := newMock(t)
		last := t0.Add(-time.Hour)
		mock.ExpectQuery(`SELECT (.+) FROM identities WHERE email = \$1`).
			WithArgs("jane@example.com").
			WillReturnRows(pgxmock.NewRows(identityCols).AddRow(
				"id-1", (*string)(nil), "jane@example.com", ptr("$argon2id$hash"),
				"one_time_code", true, &last, t0, t0,
			))

		got, err := s.Identities().GetByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
		assert.Nil(t, got.DisplayName)
		assert.Equal(t, domain.AuthModeOneTimeCode, got.AuthMode)
		require.NotNil(t, got.LastAuthenticatedAt)
		assert.True(t, last.Equal(*got.LastAuthenticatedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`SELECT (.+) FROM identities WHERE email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnRows(pgxmock.NewRows(identityCols))

		_, err := s.Identities().GetByEmail(context.Background(), "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`SELECT (.+) FROM identities WHERE id = \$1`).
			WithArgs("id-1").
			WillReturnError(errors.New("connection refused"))

		_, err := s.Identities().GetByID(context.Background(), "id-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, store.ErrNotFound)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIdentitiesTouchLastAuthenticated(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectExec(`UPDATE identities SET last_authenticated_at`).
		WithArgs(t0, "id-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE identities SET last_authenticated_at`).
		WithArgs(t0, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.Identities().TouchLastAuthenticated(context.Background(), "id-1", t0))
	require.ErrorIs(t, s.Identities().TouchLastAuthenticated(context.Background(), "missing", t0), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeCodesReplaceForEmail(t *testing.T) {
	code := domain.OneTimeCode{
		ID:        "code-1",
		Email:     "jane@example.com",
		CodeHash:  "hash",
		CreatedAt: t0,
		ExpiresAt: t0.Add(10 * time.Minute),
	}

	t.Run("locks deletes and inserts in one transaction", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
			WithArgs(code.Email).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectExec(`DELETE FROM one_time_codes WHERE email = \$1`).
			WithArgs(code.Email).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectExec(`INSERT INTO one_time_codes`).
			WithArgs(code.ID, code.Email, code.CodeHash, code.CreatedAt, code.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, s.OneTimeCodes().ReplaceForEmail(context.Background(), code))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when insert fails", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs(code.Email).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectExec(`DELETE FROM one_time_codes`).
			WithArgs(code.Email).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(`INSERT INTO one_time_codes`).
			WithArgs(code.ID, code.Email, code.CodeHash, code.CreatedAt, code.ExpiresAt).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := s.OneTimeCodes().ReplaceForEmail(context.Background(), code)
		oopsErr, ok := oops.AsOops(err)
		require.True(t, ok)
		assert.Equal(t, "CODE_REPLACE_FAILED", oopsErr.Code())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inside a transaction reuses it", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs(code.Email).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectExec(`DELETE FROM one_time_codes`).
			WithArgs(code.Email).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(`INSERT INTO one_time_codes`).
			WithArgs(code.ID, code.Email, code.CodeHash, code.CreatedAt, code.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err := s.WithTx(context.Background(), func(tx store.Tx) error {
			return tx.OneTimeCodes().ReplaceForEmail(context.Background(), code)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOneTimeCodesConsume(t *testing.T) {
	now := t0.Add(time.Minute)

	t.Run("winner gets the code", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`UPDATE one_time_codes SET used = TRUE`).
			WithArgs("jane@example.com", "hash", now).
			WillReturnRows(pgxmock.NewRows(codeCols).
				AddRow("code-1", "jane@example.com", "hash", t0, t0.Add(10*time.Minute), true))

		got, err := s.OneTimeCodes().Consume(context.Background(), "jane@example.com", "hash", now)
		require.NoError(t, err)
		assert.Equal(t, "code-1", got.ID)
		assert.True(t, got.Used)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`UPDATE one_time_codes SET used = TRUE`).
			WithArgs("jane@example.com", "hash", now).
			WillReturnRows(pgxmock.NewRows(codeCols))

		_, err := s.OneTimeCodes().Consume(context.Background(), "jane@example.com", "hash", now)
		require.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOneTimeCodesDeleteStale(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectExec(`DELETE FROM one_time_codes WHERE used OR expires_at <= \$1`).
		WithArgs(t0).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.OneTimeCodes().DeleteStale(context.Background(), t0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := s.WithTx(context.Background(), func(store.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
