package http

import (
	"net/http"
	"time"

	"github.com/ironveil/warden/internal/login/store"
	"github.com/ironveil/warden/pkg/httpx"
	"github.com/ironveil/warden/pkg/loginsdk"
)

// ReadyzHandler answers 200 once the store is reachable, 503 otherwise.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, loginsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
