package http

import (
	"net/http"

	"github.com/ironveil/warden/internal/login/service"
	"github.com/ironveil/warden/pkg/httpx"
	"github.com/ironveil/warden/pkg/slogx"
)

// LogoutHandler handles POST /v1/logout: revokes the session behind the
// bearer token. Unauthenticated so a client holding only a stale token can
// still tear it down; revoking an unknown token is a no-op.
type LogoutHandler struct {
	Sessions *service.SessionService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "missing bearer token")
		return
	}

	if err := h.Sessions.Logout(ctx, token); err != nil {
		slogx.FromContext(ctx).Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
