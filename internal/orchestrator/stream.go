package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProgressEvent — событие прогресса обработки запроса.
//
// Неизменяемое значение; номера строго возрастают внутри запроса.
// Ровно одно событие в потоке терминальное.
type ProgressEvent struct {
	// Sequence — порядковый номер внутри запроса, с единицы.
	Sequence uint64 `json:"sequence"`

	// Step — шаг, породивший событие ("orchestrator" для терминальных).
	Step string `json:"step"`

	// Message — человекочитаемое описание.
	Message string `json:"message"`

	// Timestamp — время публикации.
	Timestamp time.Time `json:"timestamp"`

	// Terminal — признак завершения потока.
	Terminal bool `json:"terminal"`

	// Err — текст ошибки для терминального события с отказом.
	Err string `json:"error,omitempty"`
}

// Stream — поток событий одного запроса для единственного потребителя.
//
// Канал ограничен; при заполнении публикация блокируется — темп
// задаёт потребитель, события не теряются. Cancel со стороны
// потребителя останавливает публикацию; задача конвейера при этом
// доводит текущую операцию до конца.
type Stream struct {
	// RequestID — запрос, которому принадлежит поток.
	RequestID uuid.UUID

	events chan ProgressEvent
	done   chan struct{}
	once   sync.Once
}

// newStream создаёт Stream с буфером на size событий.
func newStream(requestID uuid.UUID, size int) *Stream {
	if size <= 0 {
		size = 64
	}
	return &Stream{
		RequestID: requestID,
		events:    make(chan ProgressEvent, size),
		done:      make(chan struct{}),
	}
}

// Events возвращает канал событий. Канал закрывается после
// терминального события или отмены.
func (s *Stream) Events() <-chan ProgressEvent {
	return s.events
}

// Cancel останавливает поток со стороны потребителя. Идемпотентен.
func (s *Stream) Cancel() {
	s.once.Do(func() { close(s.done) })
}

// Cancelled сообщает, отменил ли потребитель поток.
func (s *Stream) Cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// publish отправляет событие потребителю.
// Возвращает false, если поток отменён — событие не доставлено.
func (s *Stream) publish(ev ProgressEvent) bool {
	// Отменённый поток не принимает события даже при свободном буфере
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case <-s.done:
		return false
	case s.events <- ev:
		return true
	}
}

// release закрывает канал событий. Вызывается только задачей конвейера.
func (s *Stream) release() {
	close(s.events)
}
