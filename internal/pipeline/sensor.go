package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/korsky/hearth/internal/intent"
	"github.com/korsky/hearth/internal/registry"
)

// SensorStep собирает показания сенсоров из кэша состояний реестра.
//
// Выполняется только для намерения read_sensor; на шину не ходит —
// читает снимки, наполненные подпиской на топики состояний.
// Отсутствие показаний — мягкий отказ: устройства могли ещё не
// опубликовать состояние.
type SensorStep struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewSensorStep создаёт SensorStep.
func NewSensorStep(reg *registry.Registry, logger *slog.Logger) *SensorStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorStep{registry: reg, logger: logger}
}

// Name возвращает имя шага.
func (s *SensorStep) Name() string { return "sensor" }

// Run собирает показания целевых устройств в выход шага.
func (s *SensorStep) Run(ctx context.Context, rc *Context, emit EmitFunc) error {
	if rc.Intent == nil || rc.Intent.Kind != intent.KindReadSensor {
		return nil
	}
	if len(rc.Targets) == 0 {
		return nil
	}

	readings := make(map[string]any)
	for _, d := range rc.Targets {
		state := s.registry.StateOf(d.ID)
		for capability, value := range state {
			readings[d.ID+"."+capability] = value
		}
	}

	if len(readings) == 0 {
		return Soft("no sensor readings available yet", nil)
	}

	rc.SetOutput(s.Name(), readings)

	keys := make([]string, 0, len(readings))
	for k := range readings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, readings[k])
	}

	s.logger.Debug("sensor readings collected",
		"request_id", rc.RequestID,
		"count", len(readings),
	)

	emit(fmt.Sprintf("sensor readings: %s", strings.Join(parts, ", ")))
	return nil
}
