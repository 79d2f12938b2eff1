//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crissvargas/realestate/internal/auth/domain"
	"github.com/crissvargas/realestate/internal/auth/store"
	"github.com/crissvargas/realestate/internal/auth/store/drivers/postgres"
	"github.com/crissvargas/realestate/pkg/idx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"
)

func setupPostgres(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("auth_test"),
		tcpostgres.WithUsername("auth"),
		tcpostgres.WithPassword("auth"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := postgres.Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestPostgresIntegration(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	const email = "jane@example.com"
	require.NoError(t, s.Identities().Create(ctx, domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: ptr("$argon2id$hash"),
		AuthMode:     domain.AuthModePassword,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	t.Run("duplicate email", func(t *testing.T) {
		err := s.Identities().Create(ctx, domain.Identity{
			ID:           idx.New().String(),
			Email:        email,
			PasswordHash: ptr("x"),
			AuthMode:     domain.AuthModePassword,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("concurrent replace leaves one code", func(t *testing.T) {
		var g errgroup.Group
		for i := range 12 {
			g.Go(func() error {
				return s.OneTimeCodes().ReplaceForEmail(ctx, domain.OneTimeCode{
					ID:        idx.New().String(),
					Email:     email,
					CodeHash:  fmt.Sprintf("hash-%d", i),
					CreatedAt: now,
					ExpiresAt: now.Add(10 * time.Minute),
				})
			})
		}
		require.NoError(t, g.Wait())

		n, err := s.OneTimeCodes().CountRedeemable(ctx, email, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})

	t.Run("concurrent consume has one winner", func(t *testing.T) {
		require.NoError(t, s.OneTimeCodes().ReplaceForEmail(ctx, domain.OneTimeCode{
			ID:        idx.New().String(),
			Email:     email,
			CodeHash:  "race",
			CreatedAt: now,
			ExpiresAt: now.Add(10 * time.Minute),
		}))

		var wins atomic.Int32
		var g errgroup.Group
		for range 12 {
			g.Go(func() error {
				_, err := s.OneTimeCodes().Consume(ctx, email, "race", now.Add(time.Second))
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				if err == nil {
					wins.Add(1)
				}
				return err
			})
		}
		require.NoError(t, g.Wait())
		require.EqualValues(t, 1, wins.Load())
	})

	t.Run("sweep", func(t *testing.T) {
		n, err := s.OneTimeCodes().DeleteStale(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})
}
