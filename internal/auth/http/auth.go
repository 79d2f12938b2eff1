package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/crissvargas/realestate/internal/auth/domain"
	"github.com/crissvargas/realestate/internal/auth/service"
	"github.com/crissvargas/realestate/pkg/authsdk"
	"github.com/crissvargas/realestate/pkg/httpx"
	"github.com/crissvargas/realestate/pkg/slogx"
)

// authMethodMagicLink is what the web frontend calls the one-time code mode.
const authMethodMagicLink = "magic_link"

// AuthHandler serves the /api/auth routes.
type AuthHandler struct {
	Auth *service.AuthService
}

// HandleRegister creates a password account.
//
//	@Summary		Register
//	@Description	Creates an identity with a password. No session is issued.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest		true	"email, password, optional nombre"
//	@Success		201		{object}	authsdk.RegisterResponse	"the created identity"
//	@Failure		400		{object}	authsdk.ErrorResponse		"invalid_input"
//	@Failure		409		{object}	authsdk.ErrorResponse		"already_exists"
//	@Failure		429		{object}	authsdk.ErrorResponse		"rate_limited"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	summary, err := h.Auth.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.Nombre,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		Message: "Usuario registrado exitosamente",
		User:    toUser(summary),
	})
}

// HandleLogin performs a password login.
//
//	@Summary		Password login
//	@Description	Verifies email and password and issues a one hour session token.
//	@Description	Unknown emails and wrong passwords return the same error.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"email and password"
//	@Success		200		{object}	authsdk.LoginResponse	"session token and identity"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_input"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.Auth.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse("Login exitoso", res))
}

// HandleRequestCode mails a one-time code.
//
//	@Summary		Request a one-time code
//	@Description	Replaces any outstanding code for the address with a new five digit code valid for ten minutes and mails it.
//	@Description	The code is never part of the response. If the mail cannot be delivered the new code is discarded.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.CodeRequest		true	"destination email"
//	@Success		200		{object}	authsdk.CodeResponse	"code sent"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_input"
//	@Failure		404		{object}	authsdk.ErrorResponse	"unknown_destination"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Failure		502		{object}	authsdk.ErrorResponse	"delivery_failed, with the provider diagnostic in detail"
//	@Router			/api/auth/magic-link [post].
func (h *AuthHandler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CodeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.Auth.RequestOneTimeCode(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.CodeResponse{
		Message:   "Código enviado exitosamente a tu correo electrónico",
		Email:     res.Destination,
		ExpiresAt: res.ExpiresAt,
	})
}

// HandleVerifyCode redeems a one-time code.
//
//	@Summary		Redeem a one-time code
//	@Description	Spends the code and issues a one hour session token. A code works once.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.VerifyCodeRequest	true	"email and code"
//	@Success		200		{object}	authsdk.LoginResponse		"session token and identity"
//	@Failure		400		{object}	authsdk.ErrorResponse		"invalid_input"
//	@Failure		401		{object}	authsdk.ErrorResponse		"invalid_or_expired_code"
//	@Failure		404		{object}	authsdk.ErrorResponse		"unknown_destination"
//	@Failure		429		{object}	authsdk.ErrorResponse		"rate_limited"
//	@Router			/api/auth/verify-code [post].
func (h *AuthHandler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.Auth.RedeemOneTimeCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse("Código verificado exitosamente", res))
}

// HandleVerify checks the bearer token.
//
//	@Summary		Verify session
//	@Description	Validates the bearer token and returns the identity as currently stored.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.VerifyResponse	"valid session"
//	@Failure		401	{object}	authsdk.ErrorResponse	"unauthenticated"
//	@Failure		404	{object}	authsdk.ErrorResponse	"unknown_destination"
//	@Router			/api/auth/verify [get].
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Auth.VerifySession(r.Context(), httpx.BearerTokenFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{
		Valid: true,
		User:  toUser(summary),
	})
}

// HandleDashboard returns the identity with its last login.
//
//	@Summary		Dashboard
//	@Description	Returns the authenticated identity including its last login time.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.DashboardResponse	"identity"
//	@Failure		401	{object}	authsdk.ErrorResponse		"unauthenticated"
//	@Failure		404	{object}	authsdk.ErrorResponse		"unknown_destination"
//	@Router			/api/auth/dashboard [get].
func (h *AuthHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Auth.VerifySession(r.Context(), httpx.BearerTokenFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.DashboardResponse{
		Message: "Acceso al panel de control",
		User:    toUser(summary),
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := httpx.DecodeJSON(w, r, dst)
	if err == nil {
		return true
	}

	apiErr := *authsdk.ErrInvalidInput
	switch {
	case errors.Is(err, httpx.ErrUnsupportedMediaType):
		apiErr.StatusCode = http.StatusUnsupportedMediaType
		apiErr.Message = httpx.ErrUnsupportedMediaType.Error()
	default:
		apiErr.Message = httpx.ErrInvalidJSON.Error()
	}
	apiErr.WriteError(w)
	return false
}

func loginResponse(message string, res service.AuthResult) authsdk.LoginResponse {
	return authsdk.LoginResponse{
		Message:   message,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      toUser(res.Identity),
	}
}

func toUser(s domain.IdentitySummary) authsdk.User {
	method := string(s.AuthMode)
	if s.AuthMode == domain.AuthModeOneTimeCode {
		method = authMethodMagicLink
	}
	return authsdk.User{
		ID:         s.ID,
		Nombre:     s.DisplayName,
		Email:      s.Email,
		AuthMethod: method,
		Active:     s.Active,
		LastLogin:  s.LastAuthenticatedAt,
	}
}

// writeServiceError maps the service taxonomy onto HTTP. Internal causes
// are logged by the service and never reach the body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		slogx.FromContext(r.Context()).Error("unclassified handler error", slog.Any("error", err))
		authsdk.ErrInternal.WriteError(w)
		return
	}

	var base *authsdk.APIError
	switch svcErr.Code {
	case service.CodeInvalidInput:
		base = authsdk.ErrInvalidInput
	case service.CodeAlreadyExists:
		base = authsdk.ErrAlreadyExists
	case service.CodeInvalidCredentials:
		base = authsdk.ErrInvalidCredentials
	case service.CodeUnknownDestination:
		base = authsdk.ErrUnknownDestination
	case service.CodeInvalidOrExpiredCode:
		base = authsdk.ErrInvalidOrExpiredCode
	case service.CodeDeliveryFailed:
		base = authsdk.ErrDeliveryFailed
	case service.CodeUnauthenticated:
		base = authsdk.ErrUnauthenticated
	default:
		authsdk.ErrInternal.WriteError(w)
		return
	}

	apiErr := *base
	apiErr.Message = svcErr.Message
	if svcErr.Code == service.CodeDeliveryFailed {
		apiErr.Detail = svcErr.Detail
	}
	if svcErr.Code == service.CodeUnauthenticated {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	apiErr.WriteError(w)
}
