package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/korsky/hearth/internal/intent"
	"github.com/korsky/hearth/internal/registry"
)

// Step — интерфейс шага конвейера.
//
// Шаги выполняются строго по порядку: следующий не начинается, пока
// не завершился предыдущий, потому что поздние шаги читают состояние,
// записанное ранними (цели устройств до отправки команд).
//
// Политика отказа у каждого шага явная:
//   - SoftFailure — конвейер продолжается, потребитель получает
//     информационное событие;
//   - любая другая ошибка — невосстановимая, конвейер прерывается.
type Step interface {
	// Name возвращает имя шага (попадает в события прогресса).
	Name() string

	// Run выполняет шаг над контекстом запроса.
	// emit публикует событие прогресса; порядковые номера
	// проставляет оркестратор.
	Run(ctx context.Context, rc *Context, emit EmitFunc) error
}

// EmitFunc — публикация события прогресса от имени текущего шага.
type EmitFunc func(message string)

// Context — изменяемое состояние одного запроса.
//
// Принадлежит ровно одной задаче конвейера на всё время жизни
// запроса и между запросами не разделяется, поэтому блокировок нет.
type Context struct {
	// RequestID — идентификатор запроса.
	RequestID uuid.UUID

	// Text — исходный текст команды.
	Text string

	// CorrelationID — необязательный идентификатор корреляции
	// от внешнего потребителя.
	CorrelationID string

	// Intent — разобранное намерение. Nil до завершения шага intent.
	Intent *intent.Intent

	// Targets — устройства, выбранные шагом device.
	Targets []registry.Device

	// Outputs — выходы шагов: имя шага → данные.
	Outputs map[string]map[string]any

	// seq — монотонный счётчик порядковых номеров событий.
	seq uint64
}

// NewContext создаёт Context для запроса.
func NewContext(requestID uuid.UUID, text, correlationID string) *Context {
	return &Context{
		RequestID:     requestID,
		Text:          text,
		CorrelationID: correlationID,
		Outputs:       make(map[string]map[string]any),
	}
}

// NextSeq возвращает следующий порядковый номер события.
func (c *Context) NextSeq() uint64 {
	c.seq++
	return c.seq
}

// SetOutput записывает выход шага.
func (c *Context) SetOutput(step string, outputs map[string]any) {
	c.Outputs[step] = outputs
}

// Output возвращает выход шага (nil, если шаг не выполнялся).
func (c *Context) Output(step string) map[string]any {
	return c.Outputs[step]
}
