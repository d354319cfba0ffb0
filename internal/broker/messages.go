package broker

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType — тип сообщения на шине.
type MessageType string

// Типы сообщений.
const (
	MessageTypeCommand MessageType = "device.command"
	MessageTypeAck     MessageType = "device.ack"
	MessageTypeState   MessageType = "device.state"
)

// Message — конверт сообщения на шине.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// CommandPayload — команда устройству.
// Точная схема принадлежит внешнему коллаборатору управления
// устройствами; ядро заполняет только эти поля.
type CommandPayload struct {
	// RequestID — корреляция с запросом пользователя.
	RequestID string `json:"request_id"`

	// DeviceID — целевое устройство.
	DeviceID string `json:"device_id"`

	// Action — действие: on, off, set.
	Action string `json:"action"`

	// Capability — затрагиваемая capability (onoff, dim, target_temperature).
	Capability string `json:"capability,omitempty"`

	// Value — значение для числовых действий.
	Value *float64 `json:"value,omitempty"`
}

// AckPayload — подтверждение от устройства.
type AckPayload struct {
	RequestID string         `json:"request_id"`
	DeviceID  string         `json:"device_id"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	State     map[string]any `json:"state,omitempty"`
}

// StatePayload — обновление состояния capability.
type StatePayload struct {
	DeviceID   string `json:"device_id"`
	Capability string `json:"capability"`
	Value      any    `json:"value"`
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload может быть уже распарсен как map или быть raw json
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
