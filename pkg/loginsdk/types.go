// Package loginsdk holds the request/response types for the warden login
// API plus a small client for driving the login sequence programmatically.
package loginsdk

import "net/url"

// ErrorResponse is the standard error body returned by every endpoint.
type ErrorResponse struct {
	// Error is the machine-readable error code (e.g. "rejected",
	// "locked_out", "challenge_already_in_progress").
	Error string `json:"error"`

	// ErrorDescription is a human-readable explanation.
	ErrorDescription string `json:"error_description"`
}

// LoginRequest starts a login sequence with primary credentials. The carried
// context fields are optional continuation data captured before the prompt.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// AuthorizationParams are the raw query parameters of a pending
	// third-party authorization request, forwarded verbatim after login.
	AuthorizationParams url.Values `json:"authorization_params,omitempty"`

	// EnrollmentTicket resumes a device-enrollment flow after login.
	EnrollmentTicket string `json:"enrollment_ticket,omitempty"`
}

// LoginResponse is returned by POST /v1/login. Exactly one of the two shapes
// is filled in: a finished login (Token + Redirect), or an open MFA attempt
// (MFARequired true with AttemptToken + Methods).
type LoginResponse struct {
	MFARequired bool `json:"mfa_required"`

	// Finished login.
	Token    string `json:"token,omitempty"`
	Redirect string `json:"redirect,omitempty"`

	// Open MFA attempt.
	AttemptToken string   `json:"attempt_token,omitempty"`
	Methods      []string `json:"methods,omitempty"`
}

// SelectFactorRequest picks which secondary factor to challenge next.
type SelectFactorRequest struct {
	AttemptToken string `json:"attempt_token"`
	Method       string `json:"method"`
}

// SelectFactorResponse echoes the selection along with the factors that are
// still available and the sticky error from the previous submission, if any.
type SelectFactorResponse struct {
	Selected string   `json:"selected"`
	Methods  []string `json:"methods"`
	Error    string   `json:"error,omitempty"`
}

// VerifyRequest submits a code for the currently selected factor. The same
// shape serves the recovery endpoint.
type VerifyRequest struct {
	AttemptToken string `json:"attempt_token"`
	Code         string `json:"code"`
}

// CancelRequest abandons an open attempt.
type CancelRequest struct {
	AttemptToken string `json:"attempt_token"`
}

// TOTPEnrollResponse carries the generated secret for the authenticator app.
type TOTPEnrollResponse struct {
	Secret  string `json:"secret"`
	URL     string `json:"url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// TOTPActivateRequest proves possession of the enrolled secret.
type TOTPActivateRequest struct {
	Code string `json:"code"`
}

// TOTPDisableRequest turns the authenticator app off; the code proves the
// caller still holds the secret.
type TOTPDisableRequest struct {
	Code string `json:"code"`
}

// RecoveryCodesResponse is the one-time plaintext recovery code batch.
type RecoveryCodesResponse struct {
	Codes []string `json:"codes"`
}

// HealthResponse is returned by the livez and readyz endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`
}
