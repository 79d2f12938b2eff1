package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HS256 secret accepted. RFC 7518 requires a
// key at least as long as the hash output.
const MinSecretLength = 32

// ErrWeakSecret is returned when the HMAC secret is too short.
var ErrWeakSecret = errors.New("jwtx: secret must be at least 32 bytes")

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256Config configures an HS256 issuer.
type HS256Config struct {
	Secret []byte
	Issuer string

	// TTL of issued sessions, DefaultSessionTTL when zero.
	TTL time.Duration

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Now is the clock used for issuance and validation, time.Now when nil.
	Now func() time.Time
}

// HS256 signs and verifies session tokens with a single process-wide
// secret. It implements both Signer and Verifier.
type HS256 struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewHS256 creates an HS256 issuer. The secret is copied.
func NewHS256(cfg HS256Config) (*HS256, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	h := &HS256{
		secret: append([]byte(nil), cfg.Secret...),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		now:    cfg.Now,
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	h.parser = jwt.NewParser(opts...)

	return h, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

// TTL returns the lifetime given to issued tokens.
func (h *HS256) TTL() time.Duration { return h.ttl }

// Sign signs the given claims as-is.
func (h *HS256) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Issue mints a session token for subject valid for the configured TTL.
func (h *HS256) Issue(subject, email string) (string, Claims, error) {
	claims := NewSessionClaims(subject, email, h.issuer, h.ttl, h.now())
	signed, err := h.Sign(claims)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}
