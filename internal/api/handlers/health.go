package handlers

import (
	"net/http"

	"github.com/golfclapp/backoffice/internal/session"
	"github.com/golfclapp/backoffice/internal/storage"
	"github.com/golfclapp/backoffice/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string `json:"status"`
	DBConnected      bool   `json:"db_connected"`
	Sessions         int    `json:"sessions"`
	WebSocketClients int    `json:"websocket_clients"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB, hub *websocket.Hub, manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{
			Status:           status,
			DBConnected:      dbConnected,
			Sessions:         len(manager.Live()),
			WebSocketClients: hub.ClientCount(),
		})
	}
}
