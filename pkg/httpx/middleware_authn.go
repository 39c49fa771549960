package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ironveil/warden/pkg/slogx"
)

// SessionInfo identifies the principal behind a validated session token.
type SessionInfo struct {
	UserID   string
	Username string
	IsAdmin  bool
}

// SessionValidator turns a bearer token into a SessionInfo, or an error when
// the token is missing, expired, revoked, or superseded.
type SessionValidator interface {
	ValidateToken(ctx context.Context, token string) (SessionInfo, error)
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	return token, token != ""
}

// AuthnMiddleware requires a valid session bearer token and injects the
// principal into the request context.
func AuthnMiddleware(v SessionValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			info, err := v.ValidateToken(ctx, raw)
			if err != nil {
				log.Warn("session token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, info.UserID)
			ctx = context.WithValue(ctx, CtxKeyUsername, info.Username)
			ctx = context.WithValue(ctx, CtxKeyIsAdmin, info.IsAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin principals. Must run inside AuthnMiddleware.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdminFromContext(r.Context()) {
				WriteError(w, http.StatusForbidden, "forbidden", "administrator access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
