package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_RejectsBadSchedule(t *testing.T) {
	if _, err := New(func(context.Context) error { return nil }, "every now and then", nil); err == nil {
		t.Fatalf("expected schedule error")
	}
	if _, err := New(nil, "@every 1m", nil); err == nil {
		t.Fatalf("expected error for nil pass")
	}
}

func TestRunOnce_CountsPasses(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	w, err := New(func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}, "@every 1m", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if err := w.RunOnce(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if w.Passes() != 2 || w.FailedPasses() != 1 {
		t.Fatalf("unexpected counters: passes=%d failed=%d", w.Passes(), w.FailedPasses())
	}
}

func TestRunOnce_NeverOverlaps(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	w, err := New(func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}, "@every 1m", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.RunOnce(context.Background()) }()
	<-entered

	if err := w.RunOnce(context.Background()); !errors.Is(err, ErrPassInProgress) {
		t.Fatalf("expected ErrPassInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
}

func TestStart_RunsOnScheduleUntilStopped(t *testing.T) {
	var calls atomic.Int32
	w, err := New(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, "@every 1s", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if calls.Load() == 0 {
		t.Fatalf("expected at least one scheduled pass")
	}
	after := calls.Load()
	time.Sleep(1500 * time.Millisecond)
	if calls.Load() != after {
		t.Fatalf("passes continued after Stop")
	}
}

func TestStart_StopsWhenContextCancelled(t *testing.T) {
	passCtx := make(chan context.Context, 1)
	w, err := New(func(ctx context.Context) error {
		select {
		case passCtx <- ctx:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}, "@every 1s", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var running context.Context
	select {
	case running = <-passCtx:
	case <-time.After(5 * time.Second):
		t.Fatalf("no pass started")
	}

	cancel()
	select {
	case <-running.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("running pass was not cancelled")
	}
}
