package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/korsky/hearth/internal/history"
	"github.com/korsky/hearth/internal/registry"
)

// CommandRequest — тело запроса на выполнение команды.
type CommandRequest struct {
	Text          string `json:"text"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// CommandAccepted — ответ о принятии команды в обработку.
type CommandAccepted struct {
	RequestID uuid.UUID `json:"request_id"`
}

// RequestResponse — запись истории в ответе API.
type RequestResponse struct {
	ID            uuid.UUID  `json:"id"`
	Text          string     `json:"text"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Status        string     `json:"status"`
	Response      string     `json:"response,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// RequestFromHistory конвертирует запись истории в DTO.
func RequestFromHistory(req history.Request) RequestResponse {
	return RequestResponse{
		ID:            req.ID,
		Text:          req.Text,
		CorrelationID: req.CorrelationID,
		Status:        string(req.Status),
		Response:      req.Response,
		Error:         req.Error,
		CreatedAt:     req.CreatedAt,
		StartedAt:     req.StartedAt,
		FinishedAt:    req.FinishedAt,
	}
}

// DeviceResponse — устройство реестра в ответе API.
type DeviceResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Zone         string         `json:"zone"`
	Type         string         `json:"type"`
	Capabilities []string       `json:"capabilities"`
	State        map[string]any `json:"state,omitempty"`
}

// DeviceFromRegistry конвертирует устройство реестра в DTO
// вместе со снимком известных состояний.
func DeviceFromRegistry(d registry.Device, state map[string]any) DeviceResponse {
	return DeviceResponse{
		ID:           d.ID,
		Name:         d.Name,
		Zone:         d.Zone,
		Type:         d.Type,
		Capabilities: d.Capabilities,
		State:        state,
	}
}
