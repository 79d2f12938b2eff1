//go:build e2e

package auth_test

import (
	"testing"

	"github.com/crissvargas/realestate/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestOneTimeCodeFlow requests a code, reads it from the outbox and logs in.
func TestOneTimeCodeFlow(t *testing.T) {
	c := setupAuthContainer(t)
	client := c.client()
	user := registerUser(t, client)

	sent, err := client.RequestCode(t.Context(), userEmail)
	require.NoError(t, err)
	require.Equal(t, userEmail, sent.Email)

	code := c.latestCode(t, userEmail)
	require.Len(t, code, 5)

	session, err := client.AuthenticateWithCode(t.Context(), userEmail, code)
	require.NoError(t, err)
	require.Equal(t, user.ID, session.User().ID)

	// A code works once.
	_, err = client.VerifyCode(t.Context(), userEmail, code)
	assertAPIError(t, err, authsdk.ErrInvalidOrExpiredCode)
}

func TestCodeForUnknownDestination(t *testing.T) {
	c := setupAuthContainer(t)

	_, err := c.client().RequestCode(t.Context(), "ghost@example.com")
	assertAPIError(t, err, authsdk.ErrUnknownDestination)
	require.Empty(t, c.outbox(t), "nothing should be sent to an unknown address")
}

// TestNewCodeSupersedesOld checks that only the latest code is redeemable.
func TestNewCodeSupersedesOld(t *testing.T) {
	c := setupAuthContainer(t)
	client := c.client()
	registerUser(t, client)

	_, err := client.RequestCode(t.Context(), userEmail)
	require.NoError(t, err)
	first := c.latestCode(t, userEmail)

	_, err = client.RequestCode(t.Context(), userEmail)
	require.NoError(t, err)
	second := c.latestCode(t, userEmail)
	require.Len(t, c.outbox(t), 2)

	if first != second {
		_, err = client.VerifyCode(t.Context(), userEmail, first)
		assertAPIError(t, err, authsdk.ErrInvalidOrExpiredCode)
	}

	_, err = client.VerifyCode(t.Context(), userEmail, second)
	require.NoError(t, err)
}

func TestCodeIsBoundToItsEmail(t *testing.T) {
	c := setupAuthContainer(t)
	client := c.client()
	registerUser(t, client)
	_, err := client.Register(t.Context(), authsdk.RegisterRequest{Email: "bob@example.com", Password: "secret2"})
	require.NoError(t, err)

	_, err = client.RequestCode(t.Context(), userEmail)
	require.NoError(t, err)
	code := c.latestCode(t, userEmail)

	_, err = client.VerifyCode(t.Context(), "bob@example.com", code)
	assertAPIError(t, err, authsdk.ErrInvalidOrExpiredCode)

	_, err = client.VerifyCode(t.Context(), userEmail, code)
	require.NoError(t, err)
}

func TestMalformedCodes(t *testing.T) {
	c := setupAuthContainer(t)
	client := c.client()
	registerUser(t, client)

	for _, code := range []string{"", "1234", "123456", "abcde"} {
		_, err := client.VerifyCode(t.Context(), userEmail, code)
		require.Error(t, err, "code %q", code)
		require.True(t,
			authsdk.IsCode(err, authsdk.ErrorCodeInvalidInput) || authsdk.IsCode(err, authsdk.ErrorCodeInvalidOrExpiredCode),
			"code %q: %v", code, err)
	}
}
