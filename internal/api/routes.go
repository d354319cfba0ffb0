package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Commands
	mux.Handle("POST /api/v1/commands", chain(http.HandlerFunc(h.CreateCommand)))
	mux.Handle("GET /api/v1/commands/{id}/events", chain(http.HandlerFunc(h.StreamCommandEvents)))
	mux.Handle("POST /api/v1/commands/stream", chain(http.HandlerFunc(h.StreamCommand)))

	// Request history
	mux.Handle("GET /api/v1/requests", chain(http.HandlerFunc(h.ListRequests)))
	mux.Handle("GET /api/v1/requests/{id}", chain(http.HandlerFunc(h.GetRequest)))

	// Devices
	mux.Handle("GET /api/v1/devices", chain(http.HandlerFunc(h.ListDevices)))
	mux.Handle("GET /api/v1/devices/{id}", chain(http.HandlerFunc(h.GetDevice)))
}
