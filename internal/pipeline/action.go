package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/korsky/hearth/internal/broker"
	"github.com/korsky/hearth/internal/intent"
	"github.com/korsky/hearth/internal/registry"
	"github.com/korsky/hearth/internal/resilience"
)

// Publisher — отправка команд устройствам.
// Реализуется broker.Client; в тестах подменяется фейком.
type Publisher interface {
	PublishCommand(ctx context.Context, cmd broker.CommandPayload) error
}

// ActionStep отправляет команды целевым устройствам через шину.
//
// Открытый предохранитель класса publish невосстановим: канал
// управления недоступен, повторять по устройствам бессмысленно.
// Частичный отказ на нескольких устройствах — мягкий: успешные
// команды уже ушли, потребителю перечисляются отказавшие.
type ActionStep struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewActionStep создаёт ActionStep.
func NewActionStep(publisher Publisher, logger *slog.Logger) *ActionStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionStep{publisher: publisher, logger: logger}
}

// Name возвращает имя шага.
func (s *ActionStep) Name() string { return "action" }

// Run строит и публикует команду для каждого целевого устройства.
func (s *ActionStep) Run(ctx context.Context, rc *Context, emit EmitFunc) error {
	it := rc.Intent
	if it == nil || !it.Kind.IsActuation() {
		return nil
	}

	var dispatched, failed []string

	for _, d := range rc.Targets {
		cmd := buildCommand(rc, it, d)

		err := s.publisher.PublishCommand(ctx, cmd)
		if err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return fmt.Errorf("%w: %v", ErrControlUnavailable, err)
			}

			s.logger.Error("command dispatch failed",
				"request_id", rc.RequestID,
				"device_id", d.ID,
				"error", err,
			)
			failed = append(failed, d.ID)
			continue
		}

		dispatched = append(dispatched, d.ID)
	}

	rc.SetOutput(s.Name(), map[string]any{
		"dispatched": dispatched,
		"failed":     failed,
	})

	if len(dispatched) == 0 && len(failed) > 0 {
		return fmt.Errorf("dispatch commands: all %d devices failed (%s)",
			len(failed), strings.Join(failed, ", "))
	}

	if len(dispatched) > 0 {
		emit(fmt.Sprintf("action dispatched: %s %s", actionOf(it.Kind), strings.Join(dispatched, ", ")))
	}

	if len(failed) > 0 {
		return Soft(fmt.Sprintf("some devices did not accept the command: %s", strings.Join(failed, ", ")), nil)
	}

	return nil
}

// buildCommand строит команду устройству из намерения.
func buildCommand(rc *Context, it *intent.Intent, d registry.Device) broker.CommandPayload {
	cmd := broker.CommandPayload{
		RequestID: rc.RequestID.String(),
		DeviceID:  d.ID,
		Action:    actionOf(it.Kind),
	}

	switch it.Kind {
	case intent.KindTurnOn, intent.KindTurnOff:
		cmd.Capability = "onoff"
	case intent.KindSetBrightness:
		cmd.Capability = "dim"
		cmd.Value = it.Value
	case intent.KindSetTemperature:
		cmd.Capability = "target_temperature"
		cmd.Value = it.Value
	}

	return cmd
}

// actionOf сопоставляет вид намерения действию команды.
func actionOf(k intent.Kind) string {
	switch k {
	case intent.KindTurnOn:
		return "on"
	case intent.KindTurnOff:
		return "off"
	default:
		return "set"
	}
}
