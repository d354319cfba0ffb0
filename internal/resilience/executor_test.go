package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func testExecutor(timeout time.Duration) *Executor {
	return NewExecutor(ExecutorConfig{
		Classes: map[string]Settings{
			"publish":   testSettings(),
			"subscribe": testSettings(),
		},
		AttemptTimeout: timeout,
	})
}

func TestExecutor_UnknownClass(t *testing.T) {
	e := testExecutor(time.Second)

	err := e.Execute(context.Background(), "nope", func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, ErrUnknownClass) {
		t.Fatalf("expected ErrUnknownClass, got %v", err)
	}
}

func TestExecutor_Success(t *testing.T) {
	e := testExecutor(time.Second)

	err := e.Execute(context.Background(), "publish", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Breaker("publish").State() != StateClosed {
		t.Error("breaker should stay closed")
	}
}

func TestExecutor_TranslatesAttemptTimeout(t *testing.T) {
	e := testExecutor(20 * time.Millisecond)

	err := e.Execute(context.Background(), "publish", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrAttemptTimeout) {
		t.Fatalf("expected ErrAttemptTimeout, got %v", err)
	}
}

func TestExecutor_CallerCancelNotTranslated(t *testing.T) {
	e := testExecutor(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Execute(ctx, "publish", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if errors.Is(err, ErrAttemptTimeout) {
		t.Fatal("caller cancellation must not be reported as attempt timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Сценарий из контракта: max_retries=3, три подряд таймаута брокера на
// publish открывают брейкер; четвёртый вызов возвращает ErrCircuitOpen,
// не обращаясь к брокеру.
func TestExecutor_PublishTimeoutsOpenCircuit(t *testing.T) {
	e := testExecutor(15 * time.Millisecond)

	var brokerCalls atomic.Int32
	slowBroker := func(ctx context.Context) error {
		brokerCalls.Add(1)
		// Брокер не отвечает — попытка упирается в таймаут
		<-ctx.Done()
		return ctx.Err()
	}

	err := e.Execute(context.Background(), "publish", slowBroker)
	if !errors.Is(err, ErrAttemptTimeout) {
		t.Fatalf("expected ErrAttemptTimeout, got %v", err)
	}
	if got := brokerCalls.Load(); got != 3 {
		t.Fatalf("expected 3 broker attempts, got %d", got)
	}
	if e.Breaker("publish").State() != StateOpen {
		t.Fatalf("expected open breaker, got %s", e.Breaker("publish").State())
	}

	// Четвёртый вызов — мгновенный отказ без обращения к брокеру
	err = e.Execute(context.Background(), "publish", slowBroker)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := brokerCalls.Load(); got != 3 {
		t.Errorf("broker should not be contacted while open, got %d calls", got)
	}
}

func TestExecutor_ClassesAreIsolated(t *testing.T) {
	e := testExecutor(time.Second)

	// Открываем publish
	_ = e.Execute(context.Background(), "publish", func(ctx context.Context) error {
		return fmt.Errorf("%w: down", ErrTransient)
	})
	if e.Breaker("publish").State() != StateOpen {
		t.Fatal("publish breaker should be open")
	}

	// subscribe продолжает работать
	err := e.Execute(context.Background(), "subscribe", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("subscribe class should be unaffected, got %v", err)
	}
	if e.Breaker("subscribe").State() != StateClosed {
		t.Error("subscribe breaker should stay closed")
	}
}
