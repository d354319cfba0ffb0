package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/korsky/hearth/internal/telemetry"
)

// Исходы попытки для метрик.
const (
	outcomeSuccess  = "success"
	outcomeTimeout  = "timeout"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

// Executor связывает операции ввода-вывода с circuit breaker'ами
// по классам и применяет таймаут на каждую попытку.
//
// Executor один на процесс: все конкурентные запросы разделяют
// его брейкеры, поэтому отказ брокера виден каждому запросу сразу.
type Executor struct {
	breakers map[string]*Breaker
	timeout  time.Duration
	logger   *slog.Logger
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// Classes — настройки брейкера на каждый класс операций.
	Classes map[string]Settings

	// AttemptTimeout — таймаут одной попытки.
	AttemptTimeout time.Duration

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// NewExecutor создаёт Executor с брейкером на каждый класс.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	breakers := make(map[string]*Breaker, len(cfg.Classes))
	for class, settings := range cfg.Classes {
		breakers[class] = NewBreaker(class, settings, logger)
	}

	return &Executor{
		breakers: breakers,
		timeout:  timeout,
		logger:   logger,
	}
}

// Execute выполняет операцию указанного класса под защитой брейкера.
//
// Каждая попытка получает контекст с таймаутом; превышение таймаута
// транслируется в ErrAttemptTimeout. Каждая попытка фиксируется в
// метриках (класс, исход, задержка). Возвращает ErrCircuitOpen при
// отклонении, ErrAttemptTimeout при таймауте, иначе ошибку операции
// после исчерпания retry.
func (e *Executor) Execute(ctx context.Context, class string, op Operation) error {
	breaker, ok := e.breakers[class]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		start := time.Now()
		opErr := op(attemptCtx)
		latency := time.Since(start)

		// Таймаут попытки (а не отмена всего запроса) — транзиентная
		// ошибка для брейкера.
		if opErr != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			opErr = fmt.Errorf("%w: %s after %s", ErrAttemptTimeout, class, e.timeout)
		}

		telemetry.RecordAttempt(class, attemptOutcome(opErr), latency)
		return opErr
	})

	if errors.Is(err, ErrCircuitOpen) {
		telemetry.RecordAttempt(class, outcomeRejected, 0)
	}

	return err
}

// Breaker возвращает брейкер класса (для наблюдения состояния).
func (e *Executor) Breaker(class string) *Breaker {
	return e.breakers[class]
}

// attemptOutcome классифицирует исход попытки для метрик.
func attemptOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrAttemptTimeout):
		return outcomeTimeout
	default:
		return outcomeError
	}
}
