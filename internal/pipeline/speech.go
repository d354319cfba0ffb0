package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/korsky/hearth/internal/intent"
)

// SpeechStep собирает выходы предыдущих шагов в итоговый текст ответа.
//
// Событий не публикует: текст забирает оркестратор и кладёт в
// терминальное событие. Синтез звука — вне ядра.
type SpeechStep struct {
	logger *slog.Logger
}

// NewSpeechStep создаёт SpeechStep.
func NewSpeechStep(logger *slog.Logger) *SpeechStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeechStep{logger: logger}
}

// Name возвращает имя шага.
func (s *SpeechStep) Name() string { return "speech" }

// Run формирует выход "text" из накопленного состояния запроса.
func (s *SpeechStep) Run(ctx context.Context, rc *Context, emit EmitFunc) error {
	text := s.compose(rc)

	rc.SetOutput(s.Name(), map[string]any{"text": text})

	s.logger.Debug("response composed",
		"request_id", rc.RequestID,
		"text", text,
	)

	return nil
}

// compose строит предложение ответа по виду намерения.
func (s *SpeechStep) compose(rc *Context) string {
	it := rc.Intent
	if it == nil || it.Kind == intent.KindOther {
		return "Sorry, I did not understand that request."
	}

	switch it.Kind {
	case intent.KindReadSensor:
		return composeReadings(rc)

	case intent.KindTurnOn, intent.KindTurnOff, intent.KindSetBrightness, intent.KindSetTemperature:
		return composeActuation(rc, it)

	default:
		return "Done."
	}
}

// composeReadings строит ответ по собранным показаниям сенсоров.
func composeReadings(rc *Context) string {
	readings := rc.Output("sensor")
	if len(readings) == 0 {
		return "I have no sensor readings for that yet."
	}

	keys := make([]string, 0, len(readings))
	for k := range readings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s is %v", k, readings[k])
	}

	return strings.Join(parts, ", ") + "."
}

// composeActuation строит ответ по результату шага действия.
func composeActuation(rc *Context, it *intent.Intent) string {
	out := rc.Output("action")
	if out == nil {
		return "No devices were controlled."
	}

	dispatched, _ := out["dispatched"].([]string)
	if len(dispatched) == 0 {
		return "No devices were controlled."
	}

	var verb string
	switch it.Kind {
	case intent.KindTurnOn:
		verb = "Turned on"
	case intent.KindTurnOff:
		verb = "Turned off"
	case intent.KindSetBrightness:
		verb = "Set brightness for"
	case intent.KindSetTemperature:
		verb = "Set temperature for"
	}

	noun := "device"
	if len(dispatched) > 1 {
		noun = "devices"
	}

	sentence := fmt.Sprintf("%s %d %s", verb, len(dispatched), noun)
	if it.Zone != "" {
		sentence += " in " + strings.ReplaceAll(it.Zone, "_", " ")
	}
	if it.Value != nil {
		sentence += fmt.Sprintf(" (%v)", *it.Value)
	}
	return sentence + "."
}
