package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Millisecond,
	}
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	attempts := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("API error (status 429): rate limited")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d", attempts)
	}
}

func TestExecuteStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		attempts++
		return errors.New("API error (status 401): unauthorized")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("permanent error retried, attempts = %d", attempts)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	attempts := 0
	wantErr := errors.New("connection refused")
	err := fastPolicy().Execute(context.Background(), func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d", attempts)
	}
}

func TestExecuteRespectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	err := fastPolicy().Execute(ctx, func() error {
		attempts++
		return fmt.Errorf("wrapped: %w", context.Canceled)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("canceled context retried, attempts = %d", attempts)
	}
}

func TestNextDelayBackoffCapped(t *testing.T) {
	p := &RetryPolicy{InitialDelay: time.Second, Multiplier: 2.0, MaxDelay: 3 * time.Second}
	if d := p.NextDelay(1); d != time.Second {
		t.Errorf("NextDelay(1) = %v", d)
	}
	if d := p.NextDelay(2); d != 2*time.Second {
		t.Errorf("NextDelay(2) = %v", d)
	}
	if d := p.NextDelay(5); d != 3*time.Second {
		t.Errorf("NextDelay(5) = %v", d)
	}
}
