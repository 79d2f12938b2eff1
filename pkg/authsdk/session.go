package authsdk

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Session holds a session token. There is no refresh; once Expired reports
// true the caller has to log in again.
type Session struct {
	client *SDKClient

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      User
}

func newSession(client *SDKClient, resp *LoginResponse) *Session {
	return &Session{
		client:    client,
		token:     resp.Token,
		expiresAt: resp.ExpiresAt,
		user:      resp.User,
	}
}

// Token returns the bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt is the token expiry reported by the server.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Expired reports whether the token has lapsed by the local clock.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.expiresAt.IsZero() && !time.Now().Before(s.expiresAt)
}

// User is the identity as of the last call that returned it.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Verify re-checks the token and refreshes the cached identity.
func (s *Session) Verify(ctx context.Context) (*VerifyResponse, error) {
	out, err := s.client.VerifyToken(ctx, s.Token())
	if err != nil {
		return nil, err
	}
	s.setUser(out.User)
	return out, nil
}

// Dashboard fetches the identity with its last login.
func (s *Session) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodGet, "/api/auth/dashboard", nil, s.Token())
	if err != nil {
		return nil, err
	}

	var out DashboardResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	s.setUser(out.User)
	return &out, nil
}

func (s *Session) setUser(u User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}
