package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/korsky/hearth/internal/history"
	"github.com/korsky/hearth/internal/pipeline"
	"github.com/korsky/hearth/internal/telemetry"
)

// ErrEmptyText — запрос без текста не принимается.
var ErrEmptyText = errors.New("request text is empty")

// Recorder — запись истории запросов.
// Реализуется history.RequestRepo; nil отключает персистентность.
type Recorder interface {
	Create(ctx context.Context, req *history.Request) error
	Update(ctx context.Context, req *history.Request) error
}

// Request — входящий запрос пользователя.
type Request struct {
	Text          string
	CorrelationID string
}

// Orchestrator прогоняет запросы через конвейер шагов.
//
// Каждый запрос получает собственную задачу, контекст и поток
// событий; брокер и его предохранители общие для всех запросов.
type Orchestrator struct {
	steps   []pipeline.Step
	history Recorder
	logger  *slog.Logger
	bufSize int

	active atomic.Int64
}

// New создаёт Orchestrator.
// recorder может быть nil — история тогда не ведётся.
func New(steps []pipeline.Step, recorder Recorder, bufSize int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		steps:   steps,
		history: recorder,
		logger:  logger,
		bufSize: bufSize,
	}
}

// Active возвращает число запросов в обработке.
func (o *Orchestrator) Active() int64 {
	return o.active.Load()
}

// Handle принимает запрос и возвращает поток событий его обработки.
//
// Обработка идёт в отдельной задаче и не привязана к ctx вызывающего:
// разрыв соединения потребителя не отменяет уже начатые операции
// на шине. Поток завершается ровно одним терминальным событием.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Stream, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	id := uuid.New()
	rec := history.NewRequest(id, req.Text, req.CorrelationID)

	if o.history != nil {
		if err := o.history.Create(ctx, rec); err != nil {
			// История опциональна: отказ БД не блокирует обработку
			o.logger.Error("failed to record request", "request_id", id, "error", err)
		}
	}

	stream := newStream(id, o.bufSize)

	o.active.Add(1)
	go o.run(context.WithoutCancel(ctx), rec, stream)

	return stream, nil
}

// run выполняет конвейер для одного запроса.
// Всегда закрывает поток; терминальное событие публикуется ровно
// один раз, если потребитель не отменил поток раньше.
func (o *Orchestrator) run(ctx context.Context, rec *history.Request, stream *Stream) {
	defer o.active.Add(-1)
	defer stream.release()

	logger := telemetry.WithRequestID(o.logger, rec.ID.String())
	logger.Info("request accepted", "text", rec.Text)

	rec.MarkRunning()
	o.record(ctx, rec)

	rc := pipeline.NewContext(rec.ID, rec.Text, rec.CorrelationID)

	emit := func(step, message string) {
		ev := ProgressEvent{
			Sequence:  rc.NextSeq(),
			Step:      step,
			Message:   message,
			Timestamp: time.Now(),
		}
		if stream.publish(ev) {
			telemetry.RecordPipelineEvent(step)
		}
	}

	var failure error
	cancelled := false

	for _, st := range o.steps {
		if stream.Cancelled() {
			cancelled = true
			break
		}

		err := st.Run(ctx, rc, func(message string) { emit(st.Name(), message) })
		if err == nil {
			continue
		}

		var soft *pipeline.SoftFailure
		if errors.As(err, &soft) {
			logger.Warn("step degraded", "step", st.Name(), "reason", soft.Reason, "error", soft.Err)
			emit(st.Name(), soft.Reason)
			continue
		}

		failure = err
		break
	}

	switch {
	case cancelled:
		rec.MarkCancelled()
		logger.Info("request cancelled by consumer")

	case failure != nil:
		rec.MarkFailed(failure.Error())
		logger.Error("request failed", "error", failure)
		o.publishTerminal(stream, rc, "request failed", failure.Error())

	default:
		response := responseText(rc)
		rec.MarkSucceeded(response)
		logger.Info("request succeeded", "duration", rec.Duration())
		o.publishTerminal(stream, rc, response, "")
	}

	o.record(ctx, rec)
	telemetry.RecordRequestFinished(string(rec.Status))
}

// publishTerminal публикует терминальное событие потока.
func (o *Orchestrator) publishTerminal(stream *Stream, rc *pipeline.Context, message, errText string) {
	ev := ProgressEvent{
		Sequence:  rc.NextSeq(),
		Step:      "orchestrator",
		Message:   message,
		Timestamp: time.Now(),
		Terminal:  true,
		Err:       errText,
	}
	if stream.publish(ev) {
		telemetry.RecordPipelineEvent(ev.Step)
	}
}

// record обновляет запись истории, если она ведётся.
func (o *Orchestrator) record(ctx context.Context, rec *history.Request) {
	if o.history == nil {
		return
	}
	if err := o.history.Update(ctx, rec); err != nil {
		o.logger.Error("failed to update request record", "request_id", rec.ID, "error", err)
	}
}

// responseText извлекает итоговый текст ответа из выхода шага speech.
func responseText(rc *pipeline.Context) string {
	if out := rc.Output("speech"); out != nil {
		if text, ok := out["text"].(string); ok && text != "" {
			return text
		}
	}
	return "Done."
}
