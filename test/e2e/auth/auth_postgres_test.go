//go:build e2e

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestPostgresDriverFlow runs both login flows against the postgres driver.
func TestPostgresDriverFlow(t *testing.T) {
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nw.Remove(ctx) })

	db, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("auth"),
		tcpostgres.WithUsername("auth"),
		tcpostgres.WithPassword("auth"),
		network.WithNetwork([]string{"db"}, nw),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Terminate(ctx) })

	env := map[string]string{
		"AUTH_DATABASE_DRIVER": "postgres",
		"DATABASE_URL":         "postgres://auth:auth@db:5432/auth?sslmode=disable",
	}
	for k, v := range relaxedLimits {
		env[k] = v
	}
	c := startAuthContainer(t, env, network.WithNetwork([]string{"auth"}, nw))
	client := c.client()

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)

	user := registerUser(t, client)

	_, err = client.AuthenticateWithPassword(t.Context(), userEmail, userPassword)
	require.NoError(t, err)

	_, err = client.RequestCode(t.Context(), userEmail)
	require.NoError(t, err)
	session, err := client.AuthenticateWithCode(t.Context(), userEmail, c.latestCode(t, userEmail))
	require.NoError(t, err)

	dash, err := session.Dashboard(t.Context())
	require.NoError(t, err)
	require.Equal(t, user.ID, dash.User.ID)
	require.NotNil(t, dash.User.LastLogin)
}
