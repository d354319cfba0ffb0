package intent

import (
	"context"
	"errors"
)

// Kind — вид намерения пользователя.
type Kind string

// Виды намерений.
const (
	KindTurnOn         Kind = "turn_on"
	KindTurnOff        Kind = "turn_off"
	KindSetBrightness  Kind = "set_brightness"
	KindSetTemperature Kind = "set_temperature"
	KindReadSensor     Kind = "read_sensor"
	KindOther          Kind = "other"
)

// IsActuation возвращает true, если намерение требует команды устройству.
func (k Kind) IsActuation() bool {
	switch k {
	case KindTurnOn, KindTurnOff, KindSetBrightness, KindSetTemperature:
		return true
	default:
		return false
	}
}

// Intent — структурированное намерение, извлечённое из текста.
type Intent struct {
	// Kind — вид намерения.
	Kind Kind `json:"kind"`

	// DeviceType — целевой тип устройства (light, thermostat, sensor).
	// Пустая строка — тип не распознан.
	DeviceType string `json:"device_type,omitempty"`

	// Zone — целевая зона. Пустая строка — зона не распознана.
	Zone string `json:"zone,omitempty"`

	// DeviceID — конкретное устройство, если названо явно.
	DeviceID string `json:"device_id,omitempty"`

	// Value — числовое значение (яркость, температура).
	Value *float64 `json:"value,omitempty"`

	// Raw — исходный текст запроса.
	Raw string `json:"raw"`
}

// ErrUnresolved — из текста не удалось извлечь намерение.
var ErrUnresolved = errors.New("intent could not be resolved")

// Resolver — внешний коллаборатор разбора намерений.
//
// Ядро не знает, как реализован разбор (LLM, правила, сервис) —
// контракт только этот. Вызов может блокироваться.
type Resolver interface {
	Resolve(ctx context.Context, text string) (*Intent, error)
}
