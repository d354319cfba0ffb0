package resilience

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/korsky/hearth/internal/telemetry"
)

// State — состояние circuit breaker'а.
type State string

const (
	// StateClosed — попытки проходят. Начальное состояние.
	StateClosed State = "closed"

	// StateOpen — попытки отклоняются без I/O до истечения OpenTimeout.
	StateOpen State = "open"

	// StateHalfOpen — после OpenTimeout пропускается одна пробная
	// попытка; её результат решает судьбу брейкера.
	StateHalfOpen State = "half_open"
)

// Параметры backoff между попытками.
const (
	initialBackoff = 100 * time.Millisecond
	backoffJitter  = 0.2
)

// Operation — защищаемая операция. Получает контекст попытки
// (с таймаутом, если его задал executor).
type Operation func(ctx context.Context) error

// Settings — настройки одного circuit breaker'а.
type Settings struct {
	// MaxRetries — попыток на один Execute; столько же подряд
	// учитываемых неудач открывает брейкер.
	MaxRetries int

	// MaxDelay — потолок задержки между попытками.
	MaxDelay time.Duration

	// OpenTimeout — сколько брейкер остаётся открытым до пробы.
	OpenTimeout time.Duration

	// SuccessThreshold — подряд успешных проб для закрытия.
	SuccessThreshold int

	// Qualify — классификатор учитываемых ошибок.
	// Nil означает «учитывать все ошибки».
	Qualify Qualifier
}

// Breaker — circuit breaker одного класса операций.
//
// Состояние и счётчики меняются только под внутренним мьютексом;
// снаружи состояние наблюдается через State() и метрики.
// Несколько горутин могут выполнять Execute одновременно.
type Breaker struct {
	name     string
	settings Settings
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	failures  int       // подряд учитываемых неудач (closed)
	successes int       // подряд успешных проб (half_open)
	changedAt time.Time // время последнего перехода состояния
	probing   bool      // проба в полёте (half_open пропускает одну)
}

// NewBreaker создаёт Breaker в состоянии closed.
func NewBreaker(name string, settings Settings, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Breaker{
		name:      name,
		settings:  settings,
		logger:    telemetry.WithBreaker(logger, name),
		state:     StateClosed,
		changedAt: time.Now(),
	}

	telemetry.RecordBreakerState(name, string(StateClosed))

	return b
}

// State возвращает текущее состояние.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name возвращает имя брейкера (класс операции).
func (b *Breaker) Name() string {
	return b.name
}

// режим допуска попытки.
type admission int

const (
	admitRejected admission = iota
	admitClosed
	admitProbe
)

// Execute выполняет операцию под защитой брейкера.
//
// В состоянии closed учитываемые ошибки повторяются до MaxRetries раз
// с экспоненциальным backoff (начиная со 100ms, удвоение, джиттер
// ±20%, потолок MaxDelay). Неучитываемые ошибки пробрасываются сразу,
// не расходуя бюджет retry и не трогая счётчики.
//
// В состоянии open возвращает ErrCircuitOpen без вызова операции.
// После OpenTimeout следующая попытка проходит как одиночная проба.
func (b *Breaker) Execute(ctx context.Context, op Operation) error {
	switch b.admit() {
	case admitRejected:
		telemetry.RecordBreakerRejection(b.name)
		b.logger.Debug("attempt rejected, circuit open")
		return ErrCircuitOpen

	case admitProbe:
		err := op(ctx)
		b.recordProbe(err)
		return err
	}

	// closed: retry-цикл
	var lastErr error
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			b.recordSuccess()
			return nil
		}

		if !b.qualifies(err) {
			return err
		}

		lastErr = err
		opened := b.recordFailure()
		if opened || attempt >= b.settings.MaxRetries {
			return lastErr
		}

		delay := backoffDelay(attempt, b.settings.MaxDelay)
		b.logger.Debug("retrying after failure",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// admit решает, пропустить ли попытку, под мьютексом.
func (b *Breaker) admit() admission {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return admitClosed

	case StateOpen:
		if time.Since(b.changedAt) < b.settings.OpenTimeout {
			return admitRejected
		}
		// Первая попытка после cooldown — проба; состояние
		// становится half_open для этой пробы.
		b.transition(StateHalfOpen)
		b.probing = true
		return admitProbe

	case StateHalfOpen:
		if b.probing {
			// Одна проба за раз — конкурентные вызовы отклоняются.
			return admitRejected
		}
		b.probing = true
		return admitProbe
	}

	return admitRejected
}

// recordSuccess фиксирует успех в состоянии closed.
func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// recordFailure фиксирует учитываемую неудачу в состоянии closed.
// Возвращает true, если брейкер открылся.
func (b *Breaker) recordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Брейкер мог открыться конкурентным вызовом, пока операция шла.
	if b.state != StateClosed {
		return true
	}

	b.failures++
	if b.failures >= b.settings.MaxRetries {
		b.failures = 0
		b.transition(StateOpen)
		return true
	}

	return false
}

// recordProbe фиксирует результат пробы в half_open.
// Любая неудача пробы немедленно открывает брейкер заново.
func (b *Breaker) recordProbe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false

	if err != nil {
		b.successes = 0
		b.transition(StateOpen)
		return
	}

	b.successes++
	if b.successes >= b.settings.SuccessThreshold {
		b.successes = 0
		b.failures = 0
		b.transition(StateClosed)
	}
}

// transition переводит брейкер в новое состояние. Вызывается под мьютексом.
func (b *Breaker) transition(to State) {
	from := b.state
	inState := time.Since(b.changedAt)

	b.state = to
	b.changedAt = time.Now()

	telemetry.RecordBreakerTransition(b.name, string(from), string(to), inState)
	b.logger.Info("circuit breaker state change",
		"from", from,
		"to", to,
		"in_state", inState,
	)
}

// qualifies проверяет ошибку классификатором.
func (b *Breaker) qualifies(err error) bool {
	if b.settings.Qualify == nil {
		return true
	}
	return b.settings.Qualify(err)
}

// backoffDelay вычисляет задержку перед следующей попыткой:
// экспонента от 100ms с джиттером ±20%, ограниченная maxDelay.
func backoffDelay(attempt int, maxDelay time.Duration) time.Duration {
	delay := initialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	jitter := 1 + backoffJitter*(2*rand.Float64()-1)
	return time.Duration(float64(delay) * jitter)
}
