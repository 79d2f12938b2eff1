package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the realestate auth service. It covers the
// unauthenticated flows and creates Sessions from their tokens.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Register creates a password account. It does not log in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.postJSON(ctx, "/api/auth/register", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login performs a password login.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestCode asks the service to mail a one-time code to email. Any
// earlier code for the same address stops working.
func (c *SDKClient) RequestCode(ctx context.Context, email string) (*CodeResponse, error) {
	var out CodeResponse
	if err := c.postJSON(ctx, "/api/auth/magic-link", CodeRequest{Email: email}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyCode redeems a one-time code.
func (c *SDKClient) VerifyCode(ctx context.Context, email, code string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, "/api/auth/verify-code", VerifyCodeRequest{Email: email, Code: code}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and returns a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, resp), nil
}

// AuthenticateWithCode redeems a code and returns a Session.
func (c *SDKClient) AuthenticateWithCode(ctx context.Context, email, code string) (*Session, error) {
	resp, err := c.VerifyCode(ctx, email, code)
	if err != nil {
		return nil, err
	}
	return newSession(c, resp), nil
}

// VerifyToken checks a bearer token and returns its current identity. This
// is what protected property endpoints call.
func (c *SDKClient) VerifyToken(ctx context.Context, token string) (*VerifyResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/verify", nil, token)
	if err != nil {
		return nil, err
	}

	var out VerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewSessionFromToken wraps a token obtained elsewhere, for example one a
// browser handed to a backend.
func (c *SDKClient) NewSessionFromToken(token string, expiresAt time.Time) *Session {
	return &Session{client: c, token: token, expiresAt: expiresAt}
}
