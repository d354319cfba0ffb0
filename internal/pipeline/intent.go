package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/korsky/hearth/internal/intent"
)

// IntentStep разбирает текст запроса в структурированное намерение.
//
// Разбор делегируется Resolver'у; его отказ невосстановим — без
// намерения остальным шагам нечего делать.
type IntentStep struct {
	resolver intent.Resolver
	logger   *slog.Logger
}

// NewIntentStep создаёт IntentStep.
func NewIntentStep(resolver intent.Resolver, logger *slog.Logger) *IntentStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentStep{resolver: resolver, logger: logger}
}

// Name возвращает имя шага.
func (s *IntentStep) Name() string { return "intent" }

// Run разбирает rc.Text и записывает результат в rc.Intent.
func (s *IntentStep) Run(ctx context.Context, rc *Context, emit EmitFunc) error {
	it, err := s.resolver.Resolve(ctx, rc.Text)
	if err != nil {
		return fmt.Errorf("resolve intent: %w", err)
	}

	rc.Intent = it
	rc.SetOutput(s.Name(), map[string]any{
		"kind":        string(it.Kind),
		"device_type": it.DeviceType,
		"zone":        it.Zone,
	})

	s.logger.Debug("intent resolved",
		"request_id", rc.RequestID,
		"kind", it.Kind,
		"device_type", it.DeviceType,
		"zone", it.Zone,
	)

	emit(fmt.Sprintf("intent resolved: %s", describeIntent(it)))
	return nil
}

// describeIntent строит короткое описание намерения для события.
func describeIntent(it *intent.Intent) string {
	desc := string(it.Kind)
	if it.DeviceType != "" {
		desc += " " + it.DeviceType
	}
	if it.Zone != "" {
		desc += " in " + it.Zone
	}
	return desc
}
