package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crissvargas/realestate/internal/auth/metrics"
	"github.com/crissvargas/realestate/internal/auth/service"
	"github.com/crissvargas/realestate/internal/auth/store/drivers/sqlite"
	"github.com/crissvargas/realestate/pkg/authsdk"
	"github.com/crissvargas/realestate/pkg/cryptox"
	"github.com/crissvargas/realestate/pkg/httpx"
	"github.com/crissvargas/realestate/pkg/jwtx"
	"github.com/crissvargas/realestate/pkg/notify"
)

type switchSender struct {
	mu  sync.Mutex
	err error
}

func (s *switchSender) Send(context.Context, notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *switchSender) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type fixture struct {
	srv    *httptest.Server
	store  *sqlite.Store
	sender *switchSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sessions, err := jwtx.NewHS256(jwtx.HS256Config{
		Secret: []byte(strings.Repeat("k", jwtx.MinSecretLength)),
		Issuer: "realestate-auth-test",
	})
	require.NoError(t, err)

	sender := &switchSender{}
	m := metrics.New()
	svc := &service.AuthService{
		Store:    st,
		Hasher:   cryptox.NewPasswordHasher(cryptox.Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1}, "pepper"),
		Codes:    func() (string, error) { return "24680", nil },
		Sender:   sender,
		Sessions: sessions,
		Metrics:  m,
	}

	limits := httpx.RateLimitProfiles{
		Strict:   httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
		Moderate: httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
		Lenient:  httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(sessions, st, limits, "test", logger)
	router.AuthService = svc
	router.Metrics = m
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: st, sender: sender}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, f.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestRegisterLoginDashboard(t *testing.T) {
	f := newFixture(t)

	resp, data := f.do(t, http.MethodPost, "/api/auth/register", "", authsdk.RegisterRequest{
		Email: "ana@example.com", Password: "secret1", Nombre: "Ana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	reg := decodeInto[authsdk.RegisterResponse](t, data)
	require.Equal(t, "Usuario registrado exitosamente", reg.Message)
	require.Equal(t, "password", reg.User.AuthMethod)
	require.True(t, reg.User.Active)
	require.NotNil(t, reg.User.Nombre)
	require.Equal(t, "Ana", *reg.User.Nombre)
	require.NotContains(t, string(data), "argon2")

	resp, data = f.do(t, http.MethodPost, "/api/auth/login", "", authsdk.LoginRequest{
		Email: "ana@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	login := decodeInto[authsdk.LoginResponse](t, data)
	require.Equal(t, "Login exitoso", login.Message)
	require.NotEmpty(t, login.Token)
	require.WithinDuration(t, time.Now().Add(time.Hour), login.ExpiresAt, time.Minute)

	resp, data = f.do(t, http.MethodGet, "/api/auth/dashboard", login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	dash := decodeInto[authsdk.DashboardResponse](t, data)
	require.Equal(t, "Acceso al panel de control", dash.Message)
	require.Equal(t, reg.User.ID, dash.User.ID)
	require.NotNil(t, dash.User.LastLogin)

	resp, data = f.do(t, http.MethodGet, "/api/auth/verify", login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	require.True(t, decodeInto[authsdk.VerifyResponse](t, data).Valid)
}

func TestOneTimeCodeFlow(t *testing.T) {
	f := newFixture(t)

	resp, data := f.do(t, http.MethodPost, "/api/auth/register", "", authsdk.RegisterRequest{
		Email: "ana@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = f.do(t, http.MethodPost, "/api/auth/magic-link", "", authsdk.CodeRequest{Email: "ana@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	sent := decodeInto[authsdk.CodeResponse](t, data)
	require.Equal(t, "ana@example.com", sent.Email)
	require.NotContains(t, string(data), "24680")

	resp, data = f.do(t, http.MethodPost, "/api/auth/verify-code", "", authsdk.VerifyCodeRequest{
		Email: "ana@example.com", Code: "24680",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	login := decodeInto[authsdk.LoginResponse](t, data)
	require.Equal(t, "Código verificado exitosamente", login.Message)
	require.NotEmpty(t, login.Token)

	resp, data = f.do(t, http.MethodPost, "/api/auth/verify-code", "", authsdk.VerifyCodeRequest{
		Email: "ana@example.com", Code: "24680",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidOrExpiredCode, decodeInto[authsdk.ErrorResponse](t, data).Error)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)

	resp, data := f.do(t, http.MethodPost, "/api/auth/register", "", authsdk.RegisterRequest{
		Email: "ana@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"register duplicate", http.MethodPost, "/api/auth/register", "",
			authsdk.RegisterRequest{Email: "ana@example.com", Password: "other12"}, http.StatusConflict, authsdk.ErrorCodeAlreadyExists},
		{"register short password", http.MethodPost, "/api/auth/register", "",
			authsdk.RegisterRequest{Email: "bob@example.com", Password: "123"}, http.StatusBadRequest, authsdk.ErrorCodeInvalidInput},
		{"login wrong password", http.MethodPost, "/api/auth/login", "",
			authsdk.LoginRequest{Email: "ana@example.com", Password: "nope123"}, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials},
		{"login unknown email", http.MethodPost, "/api/auth/login", "",
			authsdk.LoginRequest{Email: "ghost@example.com", Password: "secret1"}, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials},
		{"login missing password", http.MethodPost, "/api/auth/login", "",
			map[string]string{"email": "ana@example.com"}, http.StatusBadRequest, authsdk.ErrorCodeInvalidInput},
		{"code unknown email", http.MethodPost, "/api/auth/magic-link", "",
			authsdk.CodeRequest{Email: "ghost@example.com"}, http.StatusNotFound, authsdk.ErrorCodeUnknownDestination},
		{"redeem without request", http.MethodPost, "/api/auth/verify-code", "",
			authsdk.VerifyCodeRequest{Email: "ana@example.com", Code: "11111"}, http.StatusUnauthorized, authsdk.ErrorCodeInvalidOrExpiredCode},
		{"verify missing token", http.MethodGet, "/api/auth/verify", "", nil, http.StatusUnauthorized, authsdk.ErrorCodeUnauthenticated},
		{"verify garbage token", http.MethodGet, "/api/auth/verify", "not-a-jwt", nil, http.StatusUnauthorized, authsdk.ErrorCodeUnauthenticated},
		{"dashboard missing token", http.MethodGet, "/api/auth/dashboard", "", nil, http.StatusUnauthorized, authsdk.ErrorCodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := f.do(t, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(data))
			got := decodeInto[authsdk.ErrorResponse](t, data)
			require.Equal(t, tt.code, got.Error)
			require.NotEmpty(t, got.Message)
			require.Empty(t, got.Detail)
		})
	}
}

func TestDeliveryFailureCarriesDetail(t *testing.T) {
	f := newFixture(t)

	resp, data := f.do(t, http.MethodPost, "/api/auth/register", "", authsdk.RegisterRequest{
		Email: "ana@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	f.sender.fail(errors.New("550 mailbox unavailable"))
	resp, data = f.do(t, http.MethodPost, "/api/auth/magic-link", "", authsdk.CodeRequest{Email: "ana@example.com"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode, string(data))
	got := decodeInto[authsdk.ErrorResponse](t, data)
	require.Equal(t, authsdk.ErrorCodeDeliveryFailed, got.Error)
	require.Contains(t, got.Detail, "550 mailbox unavailable")

	// The undelivered code must not be redeemable.
	resp, _ = f.do(t, http.MethodPost, "/api/auth/verify-code", "", authsdk.VerifyCodeRequest{
		Email: "ana@example.com", Code: "24680",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMalformedBodies(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"not json", "application/json", "{", http.StatusBadRequest},
		{"trailing data", "application/json", `{"email":"a@b.co"} {}`, http.StatusBadRequest},
		{"form body", "application/x-www-form-urlencoded", "email=a@b.co", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, f.srv.URL+"/api/auth/login", strings.NewReader(tt.body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", tt.contentType)

			resp, err := f.srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.status, resp.StatusCode)
			var got authsdk.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			require.Equal(t, authsdk.ErrorCodeInvalidInput, got.Error)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/livez", "/readyz", "/api/health"} {
		resp, data := f.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "ok", decodeInto[authsdk.HealthResponse](t, data).Status, path)
	}

	resp, _ := f.do(t, http.MethodPost, "/api/auth/login", "", authsdk.LoginRequest{Email: "x@example.com", Password: "secret1"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(data), "auth_flow_total")

	require.NoError(t, f.store.Close())
	resp, data = f.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	got := decodeInto[authsdk.HealthResponse](t, data)
	require.Equal(t, "degraded", got.Status)
	require.NotNil(t, got.Checks)
	require.Equal(t, "unavailable", got.Checks.Database)
}
