package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/korsky/hearth/internal/orchestrator"
)

// defaultStreamTTL — время ожидания потребителя непотреблённым потоком.
const defaultStreamTTL = time.Minute

// streamTable хранит принятые, но ещё не потреблённые потоки событий.
//
// POST /commands принимает запрос и откладывает поток; GET events
// забирает его ровно один раз. Просроченные потоки отменяются при
// следующем обращении к таблице — обработка запроса при этом
// доводится до конца, теряются только события.
type streamTable struct {
	ttl time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]pendingStream
}

type pendingStream struct {
	stream  *orchestrator.Stream
	expires time.Time
}

func newStreamTable(ttl time.Duration) *streamTable {
	if ttl <= 0 {
		ttl = defaultStreamTTL
	}
	return &streamTable{
		ttl:     ttl,
		pending: make(map[uuid.UUID]pendingStream),
	}
}

// put откладывает поток до прихода потребителя.
func (t *streamTable) put(stream *orchestrator.Stream) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked(time.Now())
	t.pending[stream.RequestID] = pendingStream{
		stream:  stream,
		expires: time.Now().Add(t.ttl),
	}
}

// claim забирает отложенный поток. Каждый поток выдаётся один раз.
func (t *streamTable) claim(id uuid.UUID) (*orchestrator.Stream, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked(time.Now())

	p, ok := t.pending[id]
	if !ok {
		return nil, false
	}
	delete(t.pending, id)
	return p.stream, true
}

// sweepLocked отменяет просроченные потоки. Вызывается под мьютексом.
func (t *streamTable) sweepLocked(now time.Time) {
	for id, p := range t.pending {
		if now.After(p.expires) {
			p.stream.Cancel()
			delete(t.pending, id)
		}
	}
}
