package api

import (
	"encoding/json"
	"net/http"

	"github.com/vikasavnish/listinghub/internal/websocket"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthHandler responds to health check requests
func HealthHandler(hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"version":     Version,
			"connections": hub.ConnectionCount(),
		})
	}
}
