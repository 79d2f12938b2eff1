//go:build e2e

package auth_test

import (
	"testing"

	"github.com/crissvargas/realestate/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies the strict limit (5 req/min) on login.
func TestRateLimitLoginEndpoint(t *testing.T) {
	c := setupAuthContainerWithDefaultRateLimits(t)
	client := c.client()

	var lastErr error
	for i := range 6 {
		_, err := client.Login(t.Context(), "ghost@example.com", "wrong-password")
		require.Error(t, err)
		if i < 5 {
			require.False(t, authsdk.IsCode(err, authsdk.ErrorCodeRateLimited), "request %d should not be limited yet", i+1)
			continue
		}
		lastErr = err
	}

	assertAPIError(t, lastErr, authsdk.ErrRateLimited)
}

// TestRateLimitIsPerEmail verifies that one noisy address does not lock
// out another from the same IP.
func TestRateLimitIsPerEmail(t *testing.T) {
	c := setupAuthContainerWithDefaultRateLimits(t)
	client := c.client()

	for range 6 {
		_, _ = client.RequestCode(t.Context(), "noisy@example.com")
	}

	_, err := client.RequestCode(t.Context(), "quiet@example.com")
	assertAPIError(t, err, authsdk.ErrUnknownDestination)
}
