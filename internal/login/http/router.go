package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ironveil/warden/internal/login/service"
	"github.com/ironveil/warden/internal/login/store"
	"github.com/ironveil/warden/pkg/httpx"
	"github.com/ironveil/warden/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	LoginService    *service.LoginService
	Orchestrator    *service.Orchestrator
	SessionService  *service.SessionService
	TOTPService     *service.TOTPService
	RecoveryService *service.RecoveryService
	EmailService    *service.EmailCodeService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerEnrollment()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	loginHandler := &LoginHandler{LoginService: r.LoginService}

	// Primary credential submission is the password brute-force surface.
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	mfaHandler := &MFAHandler{Orchestrator: r.Orchestrator, EmailCodes: r.EmailService}

	r.Mux.Handle("POST /v1/login/mfa/select",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleSelect),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Code submission is the brute-force surface; strict on top of the
	// orchestrator's own per-factor ceiling.
	r.Mux.Handle("POST /v1/login/mfa/verify",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/mfa/recovery",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleRecovery),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/login/cancel",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleCancel),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(&LogoutHandler{Sessions: r.SessionService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerEnrollment() {
	h := &EnrollHandler{TOTP: r.TOTPService, Recovery: r.RecoveryService, Email: r.EmailService}

	secure := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.SessionService),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/mfa/totp/enroll", secure(h.HandleTOTPEnroll))
	r.Mux.Handle("POST /v1/mfa/totp/activate", secure(h.HandleTOTPActivate))
	r.Mux.Handle("POST /v1/mfa/totp/disable", secure(h.HandleTOTPDisable))
	r.Mux.Handle("POST /v1/mfa/email/enable", secure(h.HandleEmailEnable))
	r.Mux.Handle("POST /v1/mfa/recovery/regenerate", secure(h.HandleRecoveryRegenerate))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
