package http

import (
	"encoding/json"
	"net/http"

	"github.com/ironveil/warden/internal/login/domain"
	"github.com/ironveil/warden/internal/login/service"
	"github.com/ironveil/warden/pkg/httpx"
	"github.com/ironveil/warden/pkg/loginsdk"
	"github.com/ironveil/warden/pkg/slogx"
)

// MFAHandler drives an open login attempt: factor selection, code
// submission, recovery codes, and cancellation.
type MFAHandler struct {
	Orchestrator *service.Orchestrator
	EmailCodes   *service.EmailCodeService
}

// HandleSelect handles POST /v1/login/mfa/select. Selecting the email factor
// also triggers code delivery.
func (h *MFAHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginsdk.SelectFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	attempt, err := h.Orchestrator.SelectFactor(req.AttemptToken, domain.Factor(req.Method))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if attempt.Selected == domain.FactorEmail {
		if err := h.EmailCodes.IssueCode(ctx, attempt.UserID); err != nil {
			log.Error("failed to issue email code", "attempt_id", attempt.ID, "err", err)
			writeServiceError(w, service.ErrVerifierUnavailable)
			return
		}
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginsdk.SelectFactorResponse{
		Selected: string(attempt.Selected),
		Methods:  factorNames(attempt.SelectableFactors()),
		Error:    attempt.LastError,
	})
}

// HandleVerify handles POST /v1/login/mfa/verify.
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "")
}

// HandleRecovery handles POST /v1/login/mfa/recovery. It forces the
// recovery factor so a client need not issue a separate select.
func (h *MFAHandler) HandleRecovery(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, domain.FactorRecovery)
}

func (h *MFAHandler) submit(w http.ResponseWriter, r *http.Request, force domain.Factor) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginsdk.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if force != "" {
		if _, err := h.Orchestrator.SelectFactor(req.AttemptToken, force); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	result, err := h.Orchestrator.Submit(ctx, req.AttemptToken, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	log.Info("login attempt completed", "attempt_id", result.Attempt.ID, "method", result.Session.Method)

	target := service.ResolveRedirect(result.Session, result.Attempt.Carried)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginsdk.LoginResponse{
		Token:    result.Session.Token,
		Redirect: target.URL(),
	})
}

// HandleCancel handles POST /v1/login/cancel. Idempotent: cancelling an
// unknown attempt still returns 204.
func (h *MFAHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var req loginsdk.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	_ = h.Orchestrator.Cancel(req.AttemptToken)
	w.WriteHeader(http.StatusNoContent)
}
