package history

import (
	"time"

	"github.com/google/uuid"
)

// Status — статус запроса в истории.
type Status string

// Статусы запроса.
const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal возвращает true для конечных статусов.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Request — запись о запросе пользователя.
type Request struct {
	// ID — идентификатор запроса.
	ID uuid.UUID `json:"id"`

	// Text — исходный текст команды.
	Text string `json:"text"`

	// CorrelationID — идентификатор корреляции от потребителя.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Status — текущий статус.
	Status Status `json:"status"`

	// Response — итоговый текст ответа (для SUCCEEDED).
	Response string `json:"response,omitempty"`

	// Error — текст ошибки (для FAILED).
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время начала обработки.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRequest создаёт запись запроса в статусе PENDING.
func NewRequest(id uuid.UUID, text, correlationID string) *Request {
	return &Request{
		ID:            id,
		Text:          text,
		CorrelationID: correlationID,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}
}

// Duration возвращает длительность обработки, если запрос завершён.
func (r *Request) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// MarkRunning переводит запрос в статус RUNNING.
func (r *Request) MarkRunning() {
	now := time.Now()
	r.Status = StatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит запрос в статус SUCCEEDED с текстом ответа.
func (r *Request) MarkSucceeded(response string) {
	now := time.Now()
	r.Status = StatusSucceeded
	r.Response = response
	r.FinishedAt = &now
}

// MarkFailed переводит запрос в статус FAILED с ошибкой.
func (r *Request) MarkFailed(err string) {
	now := time.Now()
	r.Status = StatusFailed
	r.Error = err
	r.FinishedAt = &now
}

// MarkCancelled переводит запрос в статус CANCELLED.
func (r *Request) MarkCancelled() {
	now := time.Now()
	r.Status = StatusCancelled
	r.FinishedAt = &now
}
