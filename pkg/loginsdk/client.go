package loginsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client drives the warden login API. It holds no session state beyond the
// bearer token captured by a finished login.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is a non-2xx response decoded into the standard error shape.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Description)
}

// Login submits primary credentials. Inspect LoginResponse.MFARequired to
// decide whether to continue with SelectFactor/Verify.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	err := c.postJSON(ctx, "/v1/login", "", req, &resp)
	return resp, err
}

// SelectFactor chooses which factor to challenge next.
func (c *Client) SelectFactor(ctx context.Context, attemptToken, method string) (SelectFactorResponse, error) {
	var resp SelectFactorResponse
	err := c.postJSON(ctx, "/v1/login/mfa/select", "", SelectFactorRequest{
		AttemptToken: attemptToken,
		Method:       method,
	}, &resp)
	return resp, err
}

// Verify submits a code for the selected factor.
func (c *Client) Verify(ctx context.Context, attemptToken, code string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.postJSON(ctx, "/v1/login/mfa/verify", "", VerifyRequest{
		AttemptToken: attemptToken,
		Code:         code,
	}, &resp)
	return resp, err
}

// Recovery submits a recovery code.
func (c *Client) Recovery(ctx context.Context, attemptToken, code string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.postJSON(ctx, "/v1/login/mfa/recovery", "", VerifyRequest{
		AttemptToken: attemptToken,
		Code:         code,
	}, &resp)
	return resp, err
}

// Cancel abandons an open attempt.
func (c *Client) Cancel(ctx context.Context, attemptToken string) error {
	return c.postJSON(ctx, "/v1/login/cancel", "", CancelRequest{AttemptToken: attemptToken}, nil)
}

// Logout tears down the session behind token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.postJSON(ctx, "/v1/logout", token, struct{}{}, nil)
}

// EnrollTOTP starts authenticator-app enrollment for the session's user.
func (c *Client) EnrollTOTP(ctx context.Context, token string) (TOTPEnrollResponse, error) {
	var resp TOTPEnrollResponse
	err := c.postJSON(ctx, "/v1/mfa/totp/enroll", token, struct{}{}, &resp)
	return resp, err
}

// ActivateTOTP completes enrollment and returns the recovery code batch.
func (c *Client) ActivateTOTP(ctx context.Context, token, code string) (RecoveryCodesResponse, error) {
	var resp RecoveryCodesResponse
	err := c.postJSON(ctx, "/v1/mfa/totp/activate", token, TOTPActivateRequest{Code: code}, &resp)
	return resp, err
}

// DisableTOTP turns the authenticator app off. All sessions are revoked,
// including the one behind token.
func (c *Client) DisableTOTP(ctx context.Context, token, code string) error {
	return c.postJSON(ctx, "/v1/mfa/totp/disable", token, TOTPDisableRequest{Code: code}, nil)
}

// EnableEmailMFA turns emailed one-time codes on for the session's user.
func (c *Client) EnableEmailMFA(ctx context.Context, token string) error {
	return c.postJSON(ctx, "/v1/mfa/email/enable", token, struct{}{}, nil)
}

// Livez checks the liveness endpoint.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/livez", nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	var resp HealthResponse
	if err := c.do(req, &resp); err != nil {
		return HealthResponse{}, err
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        apiErr.Error,
			Description: apiErr.ErrorDescription,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
