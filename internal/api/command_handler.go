package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/korsky/hearth/internal/orchestrator"
)

// CreateCommand принимает команду в обработку.
// POST /api/v1/commands
//
// Ответ 202 приходит сразу; события обработки забираются отдельным
// запросом GET /commands/{id}/events. Непотреблённый поток живёт
// ограниченное время, сама обработка при этом не прерывается.
func (h *Handler) CreateCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	stream, err := h.orchestrator.Handle(r.Context(), orchestrator.Request{
		Text:          req.Text,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyText) {
			BadRequest(w, "text is required")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	h.streams.put(stream)

	Accepted(w, CommandAccepted{RequestID: stream.RequestID})
}

// StreamCommandEvents отдаёт события обработки принятой команды.
// GET /api/v1/commands/{id}/events
//
// Поток выдаётся ровно один раз; повторный запрос получает 404.
func (h *Handler) StreamCommandEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid request id")
		return
	}

	stream, ok := h.streams.claim(id)
	if !ok {
		NotFound(w, "no pending event stream for this request")
		return
	}

	h.writeSSE(w, r, stream)
}

// StreamCommand принимает команду и сразу отдаёт события одной связкой.
// POST /api/v1/commands/stream
func (h *Handler) StreamCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	stream, err := h.orchestrator.Handle(r.Context(), orchestrator.Request{
		Text:          req.Text,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyText) {
			BadRequest(w, "text is required")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	h.writeSSE(w, r, stream)
}

// writeSSE стримит события запроса как server-sent events.
//
// Разрыв соединения потребителя отменяет поток, но не операции
// на шине: уже начатые публикации команд доводятся до конца.
func (h *Handler) writeSSE(w http.ResponseWriter, r *http.Request, stream *orchestrator.Stream) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalError(w, h.logger, errors.New("response writer does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			stream.Cancel()
			return

		case ev, open := <-stream.Events():
			if !open {
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to marshal event",
					"request_id", stream.RequestID,
					"error", err,
				)
				continue
			}

			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
