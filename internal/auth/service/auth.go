package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crissvargas/realestate/internal/auth/domain"
	"github.com/crissvargas/realestate/internal/auth/metrics"
	"github.com/crissvargas/realestate/internal/auth/store"
	"github.com/crissvargas/realestate/pkg/cryptox"
	"github.com/crissvargas/realestate/pkg/idx"
	"github.com/crissvargas/realestate/pkg/jwtx"
	"github.com/crissvargas/realestate/pkg/notify"
	"github.com/crissvargas/realestate/pkg/notify/templates"
	"github.com/crissvargas/realestate/pkg/slogx"
)

const (
	DefaultDispatchTimeout = 10 * time.Second
	DefaultMailSubject     = "Código de acceso - Criss Vargas"

	codeMailTag = "one-time-code"

	// compensateTimeout bounds the delete of an undelivered code, which runs
	// detached from the request context.
	compensateTimeout = 5 * time.Second
)

var tracer = otel.Tracer("realestate/auth/service")

// PasswordHasher is satisfied by *cryptox.PasswordHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// SessionIssuer is satisfied by *jwtx.HS256.
type SessionIssuer interface {
	Issue(subject, email string) (string, jwtx.Claims, error)
	Verify(token string) (jwtx.Claims, error)
}

// CodeGenerator returns a fresh one-time code.
type CodeGenerator func() (string, error)

// DefaultCodeGenerator draws codes of domain.OneTimeCodeDigits digits.
func DefaultCodeGenerator() (string, error) {
	return cryptox.GenerateNumericCode(domain.OneTimeCodeDigits)
}

// AuthService runs the register, password login, one-time code and session
// verification flows. Every returned error is a *Error.
type AuthService struct {
	Store    store.Store
	Hasher   PasswordHasher
	Codes    CodeGenerator
	Sender   notify.Sender
	Sessions SessionIssuer
	Metrics  *metrics.Metrics

	Now             func() time.Time
	CodeTTL         time.Duration
	DispatchTimeout time.Duration
	MailSubject     string
	Validate        *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

type RegisterInput struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=6,max=255"`
	DisplayName string `json:"nombre" validate:"omitempty,max=255"`
}

// AuthResult is returned by both login flows.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  domain.IdentitySummary
}

// CodeRequestResult confirms a delivered code. It never carries the code.
type CodeRequestResult struct {
	Destination string
	ExpiresAt   time.Time
}

// Register creates a password identity. No session is issued.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (summary domain.IdentitySummary, err error) {
	ctx, done := s.startFlow(ctx, metrics.FlowRegister)
	defer func() { done(err) }()

	if blank(in.Email) || blank(in.Password) {
		return summary, invalidInput("email and password are required")
	}
	if verr := s.validator().Struct(in); verr != nil {
		return summary, invalidInput(validationMessage(verr))
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return summary, s.internal(ctx, "hash password", err)
	}

	now := s.now()
	ident := domain.Identity{
		ID:           idx.NewAt(now).String(),
		Email:        in.Email,
		PasswordHash: &hash,
		AuthMode:     domain.AuthModePassword,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if name := strings.TrimSpace(in.DisplayName); name != "" {
		ident.DisplayName = &name
	}

	if err := s.Store.Identities().Create(ctx, ident); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return summary, wrap(ErrAlreadyExists, err)
		}
		return summary, s.internal(ctx, "create identity", err)
	}

	slogx.FromContext(ctx).Info("identity registered",
		slog.String("identity_id", ident.ID),
		slogx.Email(ident.Email),
	)
	return ident.Summary(), nil
}

// LoginWithPassword checks a password and issues a session. Unknown
// emails, identities without a password and wrong passwords all fail the
// same way and take a comparable amount of time.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (res AuthResult, err error) {
	ctx, done := s.startFlow(ctx, metrics.FlowPasswordLogin)
	defer func() { done(err) }()

	if blank(email) || blank(password) {
		return res, invalidInput("email and password are required")
	}
	l := slogx.FromContext(ctx)

	ident, err := s.Store.Identities().GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.burnHash(password)
		l.Info("password login rejected", slogx.Email(email), slog.String("reason", "unknown_email"))
		return res, ErrInvalidCredentials
	case err != nil:
		return res, s.internal(ctx, "lookup identity", err)
	}

	if !ident.HasPassword() {
		s.burnHash(password)
		l.Info("password login rejected", slogx.Email(email), slog.String("reason", "no_password"))
		return res, ErrInvalidCredentials
	}

	ok, err := s.Hasher.Verify(password, *ident.PasswordHash)
	if err != nil {
		l.Warn("stored password hash is unreadable",
			slog.String("identity_id", ident.ID),
			slog.Any("error", err),
		)
		return res, wrap(ErrInvalidCredentials, err)
	}
	if !ok {
		l.Info("password login rejected", slogx.Email(email), slog.String("reason", "mismatch"))
		return res, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.Store.Identities().TouchLastAuthenticated(ctx, ident.ID, now); err != nil {
		return res, s.internal(ctx, "touch identity", err)
	}
	ident.LastAuthenticatedAt = &now

	if s.Hasher.NeedsRehash(*ident.PasswordHash) {
		s.upgradeHash(ctx, ident.ID, password, now)
	}

	return s.issue(ctx, ident)
}

// RequestOneTimeCode replaces any outstanding code for email with a fresh
// one and delivers it. When delivery fails the new code is removed again
// before DeliveryFailed is returned.
func (s *AuthService) RequestOneTimeCode(ctx context.Context, email string) (res CodeRequestResult, err error) {
	ctx, done := s.startFlow(ctx, metrics.FlowCodeRequest)
	defer func() { done(err) }()

	if blank(email) {
		return res, invalidInput("email is required")
	}
	l := slogx.FromContext(ctx)

	if _, err := s.Store.Identities().GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return res, wrap(ErrUnknownDestination, err)
		}
		return res, s.internal(ctx, "lookup identity", err)
	}

	code, err := s.generateCode()
	if err != nil {
		return res, s.internal(ctx, "generate code", err)
	}

	msg, err := s.codeMessage(ctx, email, code)
	if err != nil {
		return res, s.internal(ctx, "render code email", err)
	}

	now := s.now()
	rec := domain.OneTimeCode{
		ID:        idx.NewAt(now).String(),
		Email:     email,
		CodeHash:  codeFingerprint(email, code),
		CreatedAt: now,
		ExpiresAt: now.Add(s.codeTTL()),
	}
	if err := s.Store.OneTimeCodes().ReplaceForEmail(ctx, rec); err != nil {
		return res, s.internal(ctx, "replace one-time code", err)
	}
	s.Metrics.CodeIssued()

	if err := s.dispatch(ctx, msg); err != nil {
		s.discardCode(ctx, rec.ID)
		reason, detail := "error", err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason, detail = "timeout", "delivery timed out after "+s.dispatchTimeout().String()
		}
		s.Metrics.DeliveryFailed(reason)
		l.Error("one-time code delivery failed",
			slog.String("code_id", rec.ID),
			slogx.Email(email),
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		e := wrap(ErrDeliveryFailed, err)
		e.Detail = detail
		return res, e
	}

	l.Info("one-time code issued",
		slog.String("code_id", rec.ID),
		slogx.Email(email),
		slog.Time("expires_at", rec.ExpiresAt),
	)
	return CodeRequestResult{Destination: email, ExpiresAt: rec.ExpiresAt}, nil
}

// RedeemOneTimeCode spends a code and issues a session. A code can be
// redeemed once; concurrent redemptions of the same code have one winner.
func (s *AuthService) RedeemOneTimeCode(ctx context.Context, email, code string) (res AuthResult, err error) {
	ctx, done := s.startFlow(ctx, metrics.FlowCodeRedeem)
	defer func() { done(err) }()

	if blank(email) || blank(code) {
		return res, invalidInput("email and code are required")
	}
	if !wellFormedCode(code) {
		return res, ErrInvalidOrExpiredCode
	}
	l := slogx.FromContext(ctx)

	now := s.now()
	rec, err := s.Store.OneTimeCodes().Consume(ctx, email, codeFingerprint(email, code), now)
	switch {
	case errors.Is(err, store.ErrNotFound):
		l.Info("one-time code rejected", slogx.Email(email))
		return res, ErrInvalidOrExpiredCode
	case err != nil:
		return res, s.internal(ctx, "consume one-time code", err)
	}

	ident, err := s.Store.Identities().GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		l.Warn("redeemed code has no identity", slog.String("code_id", rec.ID), slogx.Email(email))
		return res, wrap(ErrUnknownDestination, err)
	case err != nil:
		return res, s.internal(ctx, "lookup identity", err)
	}

	if err := s.Store.Identities().TouchLastAuthenticated(ctx, ident.ID, now); err != nil {
		return res, s.internal(ctx, "touch identity", err)
	}
	ident.LastAuthenticatedAt = &now

	return s.issue(ctx, ident)
}

// VerifySession validates a bearer token and returns the identity as it is
// stored now, not as the claims describe it.
func (s *AuthService) VerifySession(ctx context.Context, token string) (summary domain.IdentitySummary, err error) {
	ctx, done := s.startFlow(ctx, metrics.FlowVerifySession)
	defer func() { done(err) }()

	if blank(token) {
		return summary, ErrUnauthenticated
	}

	claims, err := s.Sessions.Verify(token)
	if err != nil {
		return summary, wrap(ErrUnauthenticated, err)
	}

	ident, err := s.Store.Identities().GetByID(ctx, claims.Subject)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return summary, wrap(ErrUnknownDestination, err)
	case err != nil:
		return summary, s.internal(ctx, "lookup identity", err)
	}
	return ident.Summary(), nil
}

// SweepCodes removes used and expired codes and reports how many went.
func (s *AuthService) SweepCodes(ctx context.Context) (int64, error) {
	n, err := s.Store.OneTimeCodes().DeleteStale(ctx, s.now())
	if err != nil {
		return 0, s.internal(ctx, "sweep one-time codes", err)
	}
	s.Metrics.CodesSwept(n)
	if n > 0 {
		slogx.FromContext(ctx).Info("swept one-time codes", slog.Int64("deleted", n))
	}
	return n, nil
}

func (s *AuthService) issue(ctx context.Context, ident domain.Identity) (AuthResult, error) {
	token, claims, err := s.Sessions.Issue(ident.ID, ident.Email)
	if err != nil {
		return AuthResult{}, s.internal(ctx, "issue session", err)
	}
	slogx.FromContext(ctx).Info("session issued",
		slog.String("identity_id", ident.ID),
		slog.String("jti", claims.ID),
	)
	return AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAtTime(),
		Identity:  ident.Summary(),
	}, nil
}

// upgradeHash swaps a legacy or outdated hash for a current one. The login
// has already succeeded, so failures are only logged.
func (s *AuthService) upgradeHash(ctx context.Context, id, password string, now time.Time) {
	l := slogx.FromContext(ctx)
	hash, err := s.Hasher.Hash(password)
	if err == nil {
		err = s.Store.Identities().UpdatePasswordHash(ctx, id, hash, now)
	}
	if err != nil {
		l.Warn("password hash upgrade failed", slog.String("identity_id", id), slog.Any("error", err))
		return
	}
	l.Info("password hash upgraded", slog.String("identity_id", id))
}

func (s *AuthService) dispatch(ctx context.Context, msg notify.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout())
	defer cancel()

	ctx, span := tracer.Start(ctx, "notify.send")
	defer span.End()

	err := s.Sender.Send(ctx, msg)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// discardCode is the compensating delete for an undelivered code. It must
// run even when the caller has gone away.
func (s *AuthService) discardCode(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	if err := s.Store.OneTimeCodes().DeleteByID(ctx, id); err != nil {
		slogx.FromContext(ctx).Error("failed to remove undelivered one-time code",
			slog.String("code_id", id),
			slog.Any("error", err),
		)
	}
}

func (s *AuthService) codeMessage(ctx context.Context, email, code string) (notify.Message, error) {
	data := templates.CodeEmail{Code: code, ValidFor: s.codeTTL()}
	html, err := templates.Render(ctx, templates.CodeHTML(data))
	if err != nil {
		return notify.Message{}, err
	}
	subject := s.MailSubject
	if subject == "" {
		subject = DefaultMailSubject
	}
	return notify.Message{
		To:       email,
		Subject:  subject,
		HTMLBody: html,
		TextBody: templates.CodeText(data),
		Tag:      codeMailTag,
	}, nil
}

// burnHash verifies against a throwaway hash so a miss costs what a wrong
// password costs.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	if s.dummyHash != "" {
		_, _ = s.Hasher.Verify(password, s.dummyHash)
	}
}

// internal logs the full cause and hides it behind a generic failure.
func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	slogx.FromContext(ctx).Error("auth operation failed",
		slog.String("operation", op),
		slog.Any("error", err),
	)
	return wrap(ErrInternal, err)
}

// startFlow opens the span and returns the func that closes it and records
// the flow outcome.
func (s *AuthService) startFlow(ctx context.Context, flow string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth."+flow, trace.WithAttributes(attribute.String("auth.flow", flow)))
	return ctx, func(err error) {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = string(CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		span.End()
		s.Metrics.ObserveFlow(flow, outcome, time.Since(start))
	}
}

func (s *AuthService) generateCode() (string, error) {
	if s.Codes != nil {
		return s.Codes()
	}
	return DefaultCodeGenerator()
}

func (s *AuthService) validator() *validator.Validate {
	if s.Validate != nil {
		return s.Validate
	}
	return defaultValidator()
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return domain.DefaultOneTimeCodeTTL
}

func (s *AuthService) dispatchTimeout() time.Duration {
	if s.DispatchTimeout > 0 {
		return s.DispatchTimeout
	}
	return DefaultDispatchTimeout
}

func codeFingerprint(email, code string) string {
	return cryptox.FingerprintToken(email + ":" + code)
}

func wellFormedCode(code string) bool {
	if len(code) != domain.OneTimeCodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
