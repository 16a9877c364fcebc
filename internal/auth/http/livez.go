package http

import (
	"net/http"
	"time"

	"github.com/trackcrate/trackcrate/pkg/authsdk"
	"github.com/trackcrate/trackcrate/pkg/httpx"
)

// LivezHandler serves GET /livez. Answers 200 whenever the process is up;
// dependency health is /readyz's job.
func LivezHandler(version string, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
