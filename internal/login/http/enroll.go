package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ironveil/warden/internal/login/service"
	"github.com/ironveil/warden/pkg/httpx"
	"github.com/ironveil/warden/pkg/loginsdk"
	"github.com/ironveil/warden/pkg/slogx"
)

// EnrollHandler manages factor enrollment for an authenticated user.
type EnrollHandler struct {
	TOTP     *service.TOTPService
	Recovery *service.RecoveryService
	Email    *service.EmailCodeService
}

// HandleTOTPEnroll handles POST /v1/mfa/totp/enroll.
func (h *EnrollHandler) HandleTOTPEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "no authenticated user")
		return
	}

	enrollment, err := h.TOTP.Enroll(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrTOTPAlreadyEnabled) {
			httpx.WriteError(w, http.StatusBadRequest, "totp_already_enabled", "authenticator app already active")
			return
		}
		log.Error("totp enrollment failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginsdk.TOTPEnrollResponse{
		Secret:  enrollment.Secret,
		URL:     enrollment.URL,
		Issuer:  enrollment.Issuer,
		Account: enrollment.Account,
	})
}

// HandleTOTPActivate handles POST /v1/mfa/totp/activate. On success the
// recovery code batch is returned exactly once.
func (h *EnrollHandler) HandleTOTPActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "no authenticated user")
		return
	}

	var req loginsdk.TOTPActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	codes, err := h.TOTP.Activate(ctx, userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTOTPNotEnrolled):
			httpx.WriteError(w, http.StatusBadRequest, "totp_not_enrolled", "enroll before activating")
		case errors.Is(err, service.ErrTOTPAlreadyEnabled):
			httpx.WriteError(w, http.StatusBadRequest, "totp_already_enabled", "authenticator app already active")
		case errors.Is(err, service.ErrRejected):
			httpx.WriteError(w, http.StatusBadRequest, "rejected", "code rejected")
		default:
			log.Error("totp activation failed", "user_id", userID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginsdk.RecoveryCodesResponse{Codes: codes})
}

// HandleTOTPDisable handles POST /v1/mfa/totp/disable. Turning the factor
// off revokes every session, the caller's included.
func (h *EnrollHandler) HandleTOTPDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "no authenticated user")
		return
	}

	var req loginsdk.TOTPDisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.TOTP.Disable(ctx, userID, req.Code); err != nil {
		if errors.Is(err, service.ErrRejected) {
			httpx.WriteError(w, http.StatusBadRequest, "rejected", "code rejected")
			return
		}
		log.Error("totp disable failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleEmailEnable handles POST /v1/mfa/email/enable.
func (h *EnrollHandler) HandleEmailEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "no authenticated user")
		return
	}

	if err := h.Email.Enable(ctx, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailMFAAlreadyEnabled):
			httpx.WriteError(w, http.StatusBadRequest, "email_mfa_already_enabled", "emailed codes already active")
		case errors.Is(err, service.ErrValidation):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "account has no email address")
		default:
			log.Error("email mfa enable failed", "user_id", userID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRecoveryRegenerate handles POST /v1/mfa/recovery/regenerate: a fresh
// batch replaces whatever codes remain.
func (h *EnrollHandler) HandleRecoveryRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "no authenticated user")
		return
	}

	codes, err := h.Recovery.Generate(ctx, userID)
	if err != nil {
		log.Error("recovery regeneration failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginsdk.RecoveryCodesResponse{Codes: codes})
}
