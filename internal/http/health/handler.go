package health

import (
	"encoding/json"
	"net/http"

	applog "github.com/janisto/index-api/internal/platform/logging"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Handler returns a plain HTTP handler reporting liveness and the build version.
func Handler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(Response{Status: "healthy", Version: version}); err != nil {
			applog.LogError(r.Context(), "health response write failed", err)
		}
	}
}
