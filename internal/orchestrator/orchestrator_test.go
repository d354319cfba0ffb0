package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/korsky/hearth/internal/history"
	"github.com/korsky/hearth/internal/pipeline"
)

// fakeStep — шаг с программируемым поведением.
type fakeStep struct {
	name string
	run  func(ctx context.Context, rc *pipeline.Context, emit pipeline.EmitFunc) error
}

func (s *fakeStep) Name() string { return s.name }

func (s *fakeStep) Run(ctx context.Context, rc *pipeline.Context, emit pipeline.EmitFunc) error {
	if s.run == nil {
		return nil
	}
	return s.run(ctx, rc, emit)
}

func emitOnly(name, message string) *fakeStep {
	return &fakeStep{name: name, run: func(_ context.Context, _ *pipeline.Context, emit pipeline.EmitFunc) error {
		emit(message)
		return nil
	}}
}

// fakeRecorder собирает статусы записей истории.
type fakeRecorder struct {
	mu       sync.Mutex
	statuses []history.Status
}

func (r *fakeRecorder) Create(_ context.Context, req *history.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, req.Status)
	return nil
}

func (r *fakeRecorder) Update(_ context.Context, req *history.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, req.Status)
	return nil
}

func (r *fakeRecorder) last() history.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func collect(t *testing.T, stream *Stream) []ProgressEvent {
	t.Helper()

	var events []ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-stream.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("stream did not finish, got %d events", len(events))
		}
	}
}

func TestOrchestrator_EventsOrderedWithSingleTerminal(t *testing.T) {
	rec := &fakeRecorder{}
	o := New([]pipeline.Step{
		emitOnly("intent", "intent resolved"),
		emitOnly("device", "device resolved"),
		emitOnly("action", "action dispatched"),
	}, rec, 8, nil)

	stream, err := o.Handle(context.Background(), Request{Text: "turn on the light"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	events := collect(t, stream)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}

	terminals := 0
	for i, ev := range events {
		if ev.Sequence != uint64(i+1) {
			t.Errorf("event %d sequence = %d, want %d", i, ev.Sequence, i+1)
		}
		if ev.Terminal {
			terminals++
			if i != len(events)-1 {
				t.Error("terminal event must be last")
			}
		}
	}
	if terminals != 1 {
		t.Fatalf("got %d terminal events, want exactly 1", terminals)
	}

	if rec.last() != history.StatusSucceeded {
		t.Errorf("final status = %s, want SUCCEEDED", rec.last())
	}
}

func TestOrchestrator_HardFailureSuppressesLaterSteps(t *testing.T) {
	thirdRan := false
	rec := &fakeRecorder{}
	o := New([]pipeline.Step{
		emitOnly("intent", "intent resolved"),
		&fakeStep{name: "device", run: func(context.Context, *pipeline.Context, pipeline.EmitFunc) error {
			return errors.New("unknown zone: bedroom")
		}},
		&fakeStep{name: "action", run: func(context.Context, *pipeline.Context, pipeline.EmitFunc) error {
			thirdRan = true
			return nil
		}},
	}, rec, 8, nil)

	stream, err := o.Handle(context.Background(), Request{Text: "x"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	events := collect(t, stream)
	if thirdRan {
		t.Error("step after a hard failure must not run")
	}

	last := events[len(events)-1]
	if !last.Terminal || last.Err == "" {
		t.Fatalf("last event = %+v, want terminal error", last)
	}
	if rec.last() != history.StatusFailed {
		t.Errorf("final status = %s, want FAILED", rec.last())
	}
}

func TestOrchestrator_SoftFailureContinues(t *testing.T) {
	rec := &fakeRecorder{}
	o := New([]pipeline.Step{
		&fakeStep{name: "sensor", run: func(context.Context, *pipeline.Context, pipeline.EmitFunc) error {
			return pipeline.Soft("no sensor readings available yet", nil)
		}},
		emitOnly("speech", "composing"),
	}, rec, 8, nil)

	stream, err := o.Handle(context.Background(), Request{Text: "x"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	events := collect(t, stream)

	// Мягкий отказ: информационное событие + событие следующего шага + терминальный успех
	if len(events) != 3 {
		t.Fatalf("got %d events (%v), want 3", len(events), events)
	}
	if events[0].Step != "sensor" || events[0].Message != "no sensor readings available yet" {
		t.Errorf("first event = %+v, want soft failure notice", events[0])
	}
	last := events[len(events)-1]
	if !last.Terminal || last.Err != "" {
		t.Fatalf("last event = %+v, want terminal success", last)
	}
	if rec.last() != history.StatusSucceeded {
		t.Errorf("final status = %s, want SUCCEEDED", rec.last())
	}
}

func TestOrchestrator_ConsumerCancelStopsEmission(t *testing.T) {
	gate := make(chan struct{})
	thirdRan := false
	rec := &fakeRecorder{}

	o := New([]pipeline.Step{
		emitOnly("intent", "intent resolved"),
		&fakeStep{name: "device", run: func(_ context.Context, _ *pipeline.Context, emit pipeline.EmitFunc) error {
			<-gate
			emit("device resolved")
			return nil
		}},
		&fakeStep{name: "action", run: func(context.Context, *pipeline.Context, pipeline.EmitFunc) error {
			thirdRan = true
			return nil
		}},
	}, rec, 8, nil)

	stream, err := o.Handle(context.Background(), Request{Text: "x"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	first := <-stream.Events()
	if first.Message != "intent resolved" {
		t.Fatalf("first event = %+v", first)
	}

	stream.Cancel()
	close(gate)

	events := collect(t, stream)
	if len(events) != 0 {
		t.Fatalf("got %d events after cancel, want 0", len(events))
	}
	if thirdRan {
		t.Error("steps after cancellation must not run")
	}
	if rec.last() != history.StatusCancelled {
		t.Errorf("final status = %s, want CANCELLED", rec.last())
	}
}

func TestOrchestrator_BoundedStreamDeliversTerminal(t *testing.T) {
	o := New([]pipeline.Step{
		emitOnly("intent", "one"),
		emitOnly("device", "two"),
		emitOnly("action", "three"),
	}, nil, 1, nil)

	stream, err := o.Handle(context.Background(), Request{Text: "x"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	// Буфер на одно событие: производитель блокируется, но медленный
	// потребитель всё равно получает каждое событие вплоть до терминального
	var events []ProgressEvent
	for ev := range stream.Events() {
		time.Sleep(time.Millisecond)
		events = append(events, ev)
	}

	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if !events[len(events)-1].Terminal {
		t.Fatal("last event must be terminal")
	}
}

func TestOrchestrator_EmptyTextRejected(t *testing.T) {
	o := New(nil, nil, 8, nil)

	_, err := o.Handle(context.Background(), Request{Text: "   "})
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestOrchestrator_ActiveCount(t *testing.T) {
	gate := make(chan struct{})
	o := New([]pipeline.Step{
		&fakeStep{name: "intent", run: func(context.Context, *pipeline.Context, pipeline.EmitFunc) error {
			<-gate
			return nil
		}},
	}, nil, 8, nil)

	stream, err := o.Handle(context.Background(), Request{Text: "x"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	// Задача держится на gate
	deadline := time.After(time.Second)
	for o.Active() != 1 {
		select {
		case <-deadline:
			t.Fatal("active count never reached 1")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(gate)
	collect(t, stream)

	deadline = time.After(time.Second)
	for o.Active() != 0 {
		select {
		case <-deadline:
			t.Fatal("active count never returned to 0")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestStream_CancelIsIdempotent(t *testing.T) {
	s := newStream(uuid.Nil, 4)
	s.Cancel()
	s.Cancel()

	if !s.Cancelled() {
		t.Fatal("stream should report cancelled")
	}
	if s.publish(ProgressEvent{Sequence: 1}) {
		t.Fatal("publish to a cancelled stream must fail")
	}
}
