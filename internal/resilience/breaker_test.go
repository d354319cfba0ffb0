package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testSettings — быстрые настройки для тестов.
func testSettings() Settings {
	return Settings{
		MaxRetries:       3,
		MaxDelay:         time.Millisecond,
		OpenTimeout:      50 * time.Millisecond,
		SuccessThreshold: 2,
		Qualify:          QualifyKinds("transient", "timeout", "connection"),
	}
}

// failingOp возвращает операцию, которая всегда падает с err,
// и счётчик вызовов.
func failingOp(err error) (Operation, *atomic.Int32) {
	var calls atomic.Int32
	return func(ctx context.Context) error {
		calls.Add(1)
		return err
	}, &calls
}

func TestBreaker_OpensAfterMaxRetries(t *testing.T) {
	b := NewBreaker("publish", testSettings(), nil)
	op, calls := failingOp(fmt.Errorf("%w: dial refused", ErrTransient))

	err := b.Execute(context.Background(), op)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if b.State() != StateOpen {
		t.Errorf("expected open state, got %s", b.State())
	}
}

func TestBreaker_RejectsWithoutIOWhileOpen(t *testing.T) {
	b := NewBreaker("publish", testSettings(), nil)
	op, calls := failingOp(fmt.Errorf("%w: dial refused", ErrTransient))

	_ = b.Execute(context.Background(), op)
	before := calls.Load()

	// Брейкер открыт, cooldown не истёк — никакого I/O
	err := b.Execute(context.Background(), op)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != before {
		t.Error("operation should not be invoked while circuit is open")
	}
}

func TestBreaker_NonQualifyingErrorPropagatesImmediately(t *testing.T) {
	b := NewBreaker("publish", testSettings(), nil)
	appErr := errors.New("payload marshal failed")
	op, calls := failingOp(appErr)

	err := b.Execute(context.Background(), op)
	if !errors.Is(err, appErr) {
		t.Fatalf("expected app error, got %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("non-qualifying error should not consume retries, got %d attempts", got)
	}
	if b.State() != StateClosed {
		t.Errorf("non-qualifying error should not affect breaker state, got %s", b.State())
	}
}

func TestBreaker_SuccessResetsFailureCounter(t *testing.T) {
	b := NewBreaker("publish", testSettings(), nil)

	// Два падения, затем успех внутри одного Execute
	var calls atomic.Int32
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("%w: flaky", ErrTransient)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}

	// Счётчик сброшен: чтобы открыться, снова нужно 3 подряд неудачи
	op, opCalls := failingOp(fmt.Errorf("%w: down", ErrTransient))
	_ = b.Execute(context.Background(), op)

	if got := opCalls.Load(); got != 3 {
		t.Errorf("expected full retry budget of 3 after reset, got %d", got)
	}
	if b.State() != StateOpen {
		t.Errorf("expected open, got %s", b.State())
	}
}

func TestBreaker_ProbeAfterOpenTimeout(t *testing.T) {
	b := NewBreaker("publish", testSettings(), nil)
	op, _ := failingOp(fmt.Errorf("%w: down", ErrTransient))
	_ = b.Execute(context.Background(), op)

	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(60 * time.Millisecond)

	// Первая попытка после cooldown — одиночная проба (без retry)
	var probeCalls atomic.Int32
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		probeCalls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected probe error: %v", err)
	}
	if got := probeCalls.Load(); got != 1 {
		t.Errorf("probe should be a single attempt, got %d", got)
	}
	if b.State() != StateHalfOpen {
		t.Errorf("expected half_open after first successful probe, got %s", b.State())
	}
}

func TestBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b := NewBreaker("publish", testSettings(), nil)
	op, _ := failingOp(fmt.Errorf("%w: down", ErrTransient))
	_ = b.Execute(context.Background(), op)

	time.Sleep(60 * time.Millisecond)

	ok := func(ctx context.Context) error { return nil }

	// SuccessThreshold=2: две подряд успешные пробы закрывают брейкер
	if err := b.Execute(context.Background(), ok); err != nil {
		t.Fatalf("first probe failed: %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half_open, got %s", b.State())
	}

	if err := b.Execute(context.Background(), ok); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed after success threshold, got %s", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("publish", testSettings(), nil)
	op, _ := failingOp(fmt.Errorf("%w: down", ErrTransient))
	_ = b.Execute(context.Background(), op)

	time.Sleep(60 * time.Millisecond)

	// Проба падает — брейкер немедленно открывается заново
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("%w: still down", ErrTransient)
	})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if b.State() != StateOpen {
		t.Errorf("expected open after failed probe, got %s", b.State())
	}

	// И cooldown начался заново
	err = b.Execute(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen right after reopen, got %v", err)
	}
}

func TestBreaker_SingleProbeAdmitted(t *testing.T) {
	b := NewBreaker("publish", testSettings(), nil)
	op, _ := failingOp(fmt.Errorf("%w: down", ErrTransient))
	_ = b.Execute(context.Background(), op)

	time.Sleep(60 * time.Millisecond)

	// Медленная проба держит half_open; конкурентные вызовы отклоняются
	probeStarted := make(chan struct{})
	probeRelease := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- b.Execute(context.Background(), func(ctx context.Context) error {
			close(probeStarted)
			<-probeRelease
			return nil
		})
	}()

	<-probeStarted
	err := b.Execute(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("concurrent caller should be rejected during probe, got %v", err)
	}

	close(probeRelease)
	if err := <-done; err != nil {
		t.Fatalf("probe failed: %v", err)
	}
}

func TestBreaker_ConcurrentFailuresOpenConsistently(t *testing.T) {
	settings := testSettings()
	settings.MaxRetries = 5
	b := NewBreaker("publish", settings, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(ctx context.Context) error {
				return fmt.Errorf("%w: down", ErrTransient)
			})
		}()
	}
	wg.Wait()

	if b.State() != StateOpen {
		t.Errorf("expected open after concurrent failures, got %s", b.State())
	}
}

func TestBackoffDelay_CappedAtMaxDelay(t *testing.T) {
	maxDelay := 500 * time.Millisecond

	for attempt := 1; attempt <= 10; attempt++ {
		delay := backoffDelay(attempt, maxDelay)
		// джиттер ±20% от потолка
		if delay > time.Duration(float64(maxDelay)*1.2) {
			t.Errorf("attempt %d: delay %s exceeds cap", attempt, delay)
		}
		if delay <= 0 {
			t.Errorf("attempt %d: non-positive delay %s", attempt, delay)
		}
	}
}

func TestQualifyKinds(t *testing.T) {
	tests := []struct {
		name  string
		kinds []string
		err   error
		want  bool
	}{
		{"transient matches", []string{"transient"}, fmt.Errorf("%w: x", ErrTransient), true},
		{"timeout matches attempt timeout", []string{"timeout"}, ErrAttemptTimeout, true},
		{"timeout matches deadline", []string{"timeout"}, context.DeadlineExceeded, true},
		{"connection matches", []string{"connection"}, ErrConnectionLost, true},
		{"app error does not qualify", []string{"transient", "timeout"}, errors.New("boom"), false},
		{"kind not listed", []string{"transient"}, ErrConnectionLost, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QualifyKinds(tt.kinds...)
			if got := q(tt.err); got != tt.want {
				t.Errorf("qualify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
