package resilience

import (
	"context"
	"errors"
)

// Ошибки resilient executor'а и circuit breaker'а.
var (
	// ErrCircuitOpen — брейкер открыт, попытка отклонена без I/O.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrAttemptTimeout — одна попытка операции превысила таймаут.
	ErrAttemptTimeout = errors.New("operation attempt timed out")

	// ErrTransient — временная ошибка ввода-вывода (учитывается брейкером).
	ErrTransient = errors.New("transient broker error")

	// ErrConnectionLost — потеря соединения с брокером.
	ErrConnectionLost = errors.New("broker connection lost")

	// ErrUnknownClass — класс операции не зарегистрирован в executor'е.
	ErrUnknownClass = errors.New("unknown operation class")
)

// Qualifier определяет, учитывается ли ошибка брейкером.
// Неучитываемые ошибки пробрасываются без retry и без изменения
// счётчиков (например, ошибка сериализации payload).
type Qualifier func(error) bool

// QualifyKinds строит Qualifier из allow-list видов ошибок.
//
// Виды:
//   - "transient"  — ErrTransient
//   - "timeout"    — ErrAttemptTimeout и context.DeadlineExceeded
//   - "connection" — ErrConnectionLost
//
// Неизвестные виды игнорируются.
func QualifyKinds(kinds ...string) Qualifier {
	targets := make([]error, 0, len(kinds)+1)
	for _, kind := range kinds {
		switch kind {
		case "transient":
			targets = append(targets, ErrTransient)
		case "timeout":
			targets = append(targets, ErrAttemptTimeout, context.DeadlineExceeded)
		case "connection":
			targets = append(targets, ErrConnectionLost)
		}
	}

	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}
