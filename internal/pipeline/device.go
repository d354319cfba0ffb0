package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/korsky/hearth/internal/intent"
	"github.com/korsky/hearth/internal/registry"
)

// DeviceStep выбирает целевые устройства по намерению.
//
// Для исполнительных намерений отсутствие цели невосстановимо:
// конвейер прерывается ДО шага действия, на шину не уходит ничего.
// Для сенсорных запросов отсутствие цели — мягкий отказ.
type DeviceStep struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewDeviceStep создаёт DeviceStep.
func NewDeviceStep(reg *registry.Registry, logger *slog.Logger) *DeviceStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceStep{registry: reg, logger: logger}
}

// Name возвращает имя шага.
func (s *DeviceStep) Name() string { return "device" }

// Run заполняет rc.Targets по rc.Intent.
func (s *DeviceStep) Run(ctx context.Context, rc *Context, emit EmitFunc) error {
	it := rc.Intent
	if it == nil || it.Kind == intent.KindOther {
		// Нечего резолвить: ответ сформирует шаг speech
		return nil
	}

	// Устройство названо явно — зона и тип вторичны
	if it.DeviceID != "" {
		d, ok := s.registry.ByID(it.DeviceID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoDeviceFound, it.DeviceID)
		}
		rc.Targets = []registry.Device{d}
		emit(fmt.Sprintf("device resolved: %s", d.ID))
		return nil
	}

	if it.Zone != "" && !s.registry.HasZone(it.Zone) {
		return fmt.Errorf("%w: %s", ErrUnknownZone, it.Zone)
	}

	targets := s.registry.InZone(it.Zone, it.DeviceType)
	if len(targets) == 0 {
		if it.Kind.IsActuation() {
			return fmt.Errorf("%w: %s in %q", ErrNoDeviceFound, it.DeviceType, it.Zone)
		}
		return Soft(fmt.Sprintf("no %s devices found in %q", it.DeviceType, it.Zone), ErrNoDeviceFound)
	}

	rc.Targets = targets

	ids := make([]string, len(targets))
	for i, d := range targets {
		ids[i] = d.ID
	}

	s.logger.Debug("devices resolved",
		"request_id", rc.RequestID,
		"count", len(targets),
		"devices", ids,
	)

	emit(fmt.Sprintf("device resolved: %s", strings.Join(ids, ", ")))
	return nil
}
