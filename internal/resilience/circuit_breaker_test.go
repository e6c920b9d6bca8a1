package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerFullCycle(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond,
		WindowDuration:   time.Minute,
	})

	fail := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return fail }); err != fail {
			t.Fatalf("expected underlying error, got %v", err)
		}
	}
	if cb.State() != Open {
		t.Fatalf("expected Open after 3 failures, got %v", cb.State())
	}

	if err := cb.Call(func() error { return nil }); !errors.As(err, new(interface{ Error() string })) {
		t.Fatalf("expected an error when open, got %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if !cb.IsCallPermitted() {
		t.Fatal("expected call permitted after timeout elapses")
	}
	if cb.State() != HalfOpen {
		t.Fatalf("expected HalfOpen, got %v", cb.State())
	}

	for i := 0; i < 2; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if cb.State() != Closed {
		t.Fatalf("expected Closed after 2 successes, got %v", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
		WindowDuration:   time.Minute,
	})

	cb.Call(func() error { return errors.New("x") })
	if cb.State() != Open {
		t.Fatal("expected Open")
	}

	time.Sleep(20 * time.Millisecond)
	cb.Call(func() error { return errors.New("x") })
	if cb.State() != Open {
		t.Fatalf("expected re-opened after HalfOpen failure, got %v", cb.State())
	}
}
