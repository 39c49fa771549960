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

// LoginHandler handles POST /v1/login: primary credentials in, either a
// finished session or an open MFA attempt out.
type LoginHandler struct {
	LoginService *service.LoginService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse login request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	carried := domain.CarriedContext{}
	if len(req.AuthorizationParams) > 0 {
		carried.Authorization = &domain.AuthorizationParams{Params: req.AuthorizationParams}
	}
	if req.EnrollmentTicket != "" {
		carried.Enrollment = &domain.EnrollmentTicket{Token: req.EnrollmentTicket}
	}

	result, err := h.LoginService.Begin(ctx, req.Username, req.Password, carried)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)

	if result.MFARequired {
		httpx.WriteJSON(w, http.StatusOK, loginsdk.LoginResponse{
			MFARequired:  true,
			AttemptToken: result.Attempt.ID,
			Methods:      factorNames(result.Attempt.SelectableFactors()),
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginsdk.LoginResponse{
		Token:    result.Session.Token,
		Redirect: result.Redirect.URL(),
	})
}

func factorNames(factors []domain.Factor) []string {
	names := make([]string, len(factors))
	for i, f := range factors {
		names[i] = string(f)
	}
	return names
}
