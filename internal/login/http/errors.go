package http

import (
	"errors"
	"net/http"

	"github.com/ironveil/warden/internal/login/service"
	"github.com/ironveil/warden/pkg/httpx"
)

// writeServiceError maps the service error taxonomy onto HTTP responses.
// Every handler funnels its service errors through here so a given sentinel
// always produces the same status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "missing or malformed input")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "username or password incorrect")
	case errors.Is(err, service.ErrInvalidFactor):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_factor", "factor not offered for this attempt")
	case errors.Is(err, service.ErrAlreadyUsed):
		httpx.WriteError(w, http.StatusUnauthorized, "recovery_code_already_used", "this recovery code was already redeemed; use a different one")
	case errors.Is(err, service.ErrRejected):
		httpx.WriteError(w, http.StatusUnauthorized, "rejected", "code rejected")
	case errors.Is(err, service.ErrLockedOut):
		httpx.WriteError(w, http.StatusForbidden, "locked_out", "too many failed attempts for this factor")
	case errors.Is(err, service.ErrAlreadyInProgress):
		httpx.WriteError(w, http.StatusConflict, "challenge_already_in_progress", "a submission is already being verified")
	case errors.Is(err, service.ErrVerifierUnavailable):
		httpx.WriteError(w, http.StatusServiceUnavailable, "verifier_unavailable", "verification backend unreachable, try again")
	case errors.Is(err, service.ErrAttemptNotFound):
		httpx.WriteError(w, http.StatusNotFound, "login_attempt_not_found", "attempt unknown, expired, or cancelled")
	case errors.Is(err, service.ErrNoCapabilities):
		httpx.WriteError(w, http.StatusConflict, "no_mfa_capabilities", "no usable factor; restart the login")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
