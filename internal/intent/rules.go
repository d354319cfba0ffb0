package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numberRe находит первое число в тексте (80, 21.5).
var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// RuleResolver — резолвер намерений на ключевых словах.
//
// Реализация по умолчанию, когда LLM-коллаборатор недоступен:
// вид намерения по глаголам, тип устройства по существительным,
// зона подстрочным совпадением со списком известных зон.
type RuleResolver struct {
	zones []string
}

// NewRuleResolver создаёт RuleResolver со списком известных зон.
func NewRuleResolver(zones []string) *RuleResolver {
	lowered := make([]string, len(zones))
	for i, z := range zones {
		lowered[i] = strings.ToLower(z)
	}
	return &RuleResolver{zones: lowered}
}

// Resolve извлекает намерение из текста.
// Возвращает ErrUnresolved только для пустого текста: неузнанный
// запрос получает Kind=other и решается дальше по конвейеру.
func (r *RuleResolver) Resolve(ctx context.Context, text string) (*Intent, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty request", ErrUnresolved)
	}

	lower := strings.ToLower(trimmed)

	it := &Intent{
		Kind:       r.kindOf(lower),
		DeviceType: deviceTypeOf(lower),
		Zone:       r.zoneOf(lower),
		Raw:        text,
	}

	if m := numberRe.FindString(lower); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			it.Value = &v
		}
	}

	// Сенсорные запросы без явного типа относятся к сенсорам
	if it.Kind == KindReadSensor && it.DeviceType == "" {
		it.DeviceType = "sensor"
	}

	// Установка температуры адресует термостат, а не сенсор
	if it.Kind == KindSetTemperature {
		it.DeviceType = "thermostat"
	}

	return it, nil
}

// kindOf определяет вид намерения по глаголам и оборотам.
func (r *RuleResolver) kindOf(text string) Kind {
	switch {
	case containsAny(text, "turn off", "switch off", "zet uit", "uitzetten"):
		return KindTurnOff
	case containsAny(text, "brightness", "dim ", "helderheid", "%"):
		return KindSetBrightness
	case containsAny(text, "set the temperature", "set temperature", "verwarm", "graden"):
		return KindSetTemperature
	case containsAny(text, "what is", "what's", "how warm", "how cold", "temperature in", "humidity", "hoe warm", "wat is"):
		return KindReadSensor
	case containsAny(text, "turn on", "switch on", "zet aan", "aanzetten"):
		return KindTurnOn
	default:
		return KindOther
	}
}

// zoneOf ищет известную зону в тексте.
func (r *RuleResolver) zoneOf(text string) string {
	for _, zone := range r.zones {
		if strings.Contains(text, zone) {
			return zone
		}
		// "living room" в тексте против зоны "living_room" в реестре
		if strings.Contains(text, strings.ReplaceAll(zone, "_", " ")) {
			return zone
		}
	}
	return ""
}

// deviceTypeOf определяет тип устройства по существительным.
func deviceTypeOf(text string) string {
	switch {
	case containsAny(text, "light", "lamp", "licht"):
		return "light"
	case containsAny(text, "thermostat", "heating", "verwarming"):
		return "thermostat"
	case containsAny(text, "sensor", "temperature", "humidity", "temperatuur"):
		return "sensor"
	default:
		return ""
	}
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
