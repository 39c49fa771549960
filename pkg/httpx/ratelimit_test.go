package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ironveil/warden/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddlewareBlocksAfterBurst(t *testing.T) {
	t.Parallel()

	config := httpx.RateLimitConfig{
		RequestsPerWindow: 3,
		Window:            time.Minute,
		Burst:             3,
	}
	h := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler())

	for i := range 3 {
		rec := doRequest(t, h, "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := doRequest(t, h, "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewareIsolatesKeys(t *testing.T) {
	t.Parallel()

	config := httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             1,
	}
	h := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler())

	require.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.1:1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(t, h, "10.0.0.1:2").Code)

	// A different client is unaffected.
	require.Equal(t, http.StatusOK, doRequest(t, h, "10.0.0.2:1").Code)
}

func TestRateLimitMiddlewareAllowsWhenKeyMissing(t *testing.T) {
	t.Parallel()

	config := httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             1,
	}
	empty := func(*http.Request) string { return "" }
	h := httpx.RateLimitMiddleware(config, empty)(okHandler())

	for range 5 {
		req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
		req.RemoteAddr = ""
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestIPKeyExtractorPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", httpx.IPKeyExtractor(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.9")
	require.Equal(t, "203.0.113.9", httpx.IPKeyExtractor(req))

	req.Header.Del("X-Real-IP")
	require.Equal(t, "192.0.2.1", httpx.IPKeyExtractor(req))
}
