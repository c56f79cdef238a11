package www

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type SysInfo struct {
	Version string
	Started time.Time
}

type health struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// NewHealthHandler reports the database as the service's only dependency.
func NewHealthHandler(db Store, sysInfo SysInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := health{
			Status:  "ok",
			Version: sysInfo.Version,
			Uptime:  time.Since(sysInfo.Started).Truncate(time.Second).String(),
		}
		if err := db.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body.Status = "unavailable"
			body.Error = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
