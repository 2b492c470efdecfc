package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"kursbot/pkg/logx"
)

func TestGoRecoversPanic(t *testing.T) {
	s := New(context.Background(), logx.Nop())
	s.Go("boom", func(ctx context.Context) error {
		panic("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop after panic: %v", err)
	}
}

func TestGoRestartRetriesUntilCleanExit(t *testing.T) {
	s := New(context.Background(), logx.Nop())

	var calls int32
	done := make(chan struct{})
	s.GoRestart("flaky", func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("loop not restarted, calls=%d", atomic.LoadInt32(&calls))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestGoRestartStopsOnCancel(t *testing.T) {
	s := New(context.Background(), logx.Nop())

	started := make(chan struct{}, 1)
	s.GoRestart("loop", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("loop never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
