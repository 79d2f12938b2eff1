package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/crissvargas/realestate/internal/auth/metrics"
	"github.com/crissvargas/realestate/internal/auth/service"
	"github.com/crissvargas/realestate/pkg/httpx"
	"github.com/crissvargas/realestate/pkg/jwtx"
	"github.com/crissvargas/realestate/pkg/slogx"

	_ "github.com/crissvargas/realestate/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	db           Pinger
	limits       httpx.RateLimitProfiles
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	AuthService *service.AuthService
	Metrics     *metrics.Metrics // nil disables /metrics
}

func NewRouter(
	verifier jwtx.Verifier,
	db Pinger,
	limits httpx.RateLimitProfiles,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		db:           db,
		limits:       limits,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSession()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Realestate Auth API
//	@version		1.0.0
//	@description	Password and one-time code login for the realestate platform.
//	@description
//	@description				Sessions are HS256 bearer tokens valid for one hour. There is no refresh; log in again when a session lapses.
//
//	@contact.name				Criss Vargas
//
//	@host						localhost:4000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService}

	// Credential checks and code issuance are limited by IP + email, so one
	// client cannot brute force an account or flood an inbox.
	strict := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, httpx.RateLimitByIPAndJSONField(r.limits.Strict, "email"))
	}

	r.Mux.Handle("POST /api/auth/register", strict(h.HandleRegister))
	r.Mux.Handle("POST /api/auth/login", strict(h.HandleLogin))
	r.Mux.Handle("POST /api/auth/magic-link", strict(h.HandleRequestCode))
	r.Mux.Handle("POST /api/auth/verify-code", strict(h.HandleVerifyCode))
}

func (r *Router) registerSession() {
	h := &AuthHandler{Auth: r.AuthService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.limits.Moderate),
		)
	}

	r.Mux.Handle("GET /api/auth/verify", secured(h.HandleVerify))
	r.Mux.Handle("GET /api/auth/dashboard", secured(h.HandleDashboard))
}

func (r *Router) registerSystem() {
	lenient := httpx.RateLimitByIP(r.limits.Lenient)

	r.Mux.Handle("GET /livez", httpx.Chain(LivezHandler(r.startTime, r.buildVersion), lenient))

	ready := ReadyzHandler(r.startTime, r.buildVersion, r.db)
	r.Mux.Handle("GET /readyz", httpx.Chain(ready, lenient))
	r.Mux.Handle("GET /api/health", httpx.Chain(ready, lenient))

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
