package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTaskRunnerRetriesThenSucceeds(t *testing.T) {
	r := NewTaskRunner(TaskRunnerConfig{
		Name:                   "test",
		InitialRetryDelay:      time.Millisecond,
		MaxRetryDelay:          5 * time.Millisecond,
		MaxConsecutiveFailures: 10,
	}, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	r.Run(ctx, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		cancel()
		return nil
	})

	if attempts < 3 {
		t.Errorf("expected at least 3 attempts, got %d", attempts)
	}
}

func TestTaskRunnerFatalAfterBudget(t *testing.T) {
	fatalCalled := false
	r := NewTaskRunner(TaskRunnerConfig{
		Name:                   "test",
		InitialRetryDelay:      time.Millisecond,
		MaxRetryDelay:          2 * time.Millisecond,
		MaxConsecutiveFailures: 3,
	}, zerolog.Nop(), func(err error) { fatalCalled = true })

	r.Run(context.Background(), func(ctx context.Context) error {
		return errors.New("always fails")
	})

	if !fatalCalled {
		t.Error("expected onFatal to be called after exhausting failure budget")
	}
}
