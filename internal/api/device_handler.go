package api

import (
	"net/http"
)

// ListDevices возвращает устройства реестра со снимками состояний.
// GET /api/v1/devices?zone=...
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")

	devices := h.registry.All()
	if zone != "" {
		devices = h.registry.InZone(zone, "")
	}

	result := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		result[i] = DeviceFromRegistry(d, h.registry.StateOf(d.ID))
	}

	List(w, result, len(result))
}

// GetDevice возвращает устройство по ID.
// GET /api/v1/devices/{id}
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	d, ok := h.registry.ByID(id)
	if !ok {
		NotFound(w, "device not found")
		return
	}

	Success(w, DeviceFromRegistry(d, h.registry.StateOf(d.ID)))
}
