package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/x1labs/x1-rpc-proxy/internal/core/domain"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

func discardLogger() logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAdmissionQueue_FastPath(t *testing.T) {
	queue := NewAdmissionQueue(2, time.Second, discardLogger())

	if err := queue.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := queue.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := queue.Stats()
	if stats.Active != 2 || stats.Available != 0 || !stats.Full {
		t.Errorf("unexpected stats: %+v", stats)
	}

	queue.Release()
	queue.Release()

	if stats := queue.Stats(); stats.Active != 0 || stats.Available != 2 || stats.Full {
		t.Errorf("unexpected stats after release: %+v", stats)
	}
}

func TestAdmissionQueue_TimesOutWhenFull(t *testing.T) {
	queue := NewAdmissionQueue(1, 50*time.Millisecond, discardLogger())

	if err := queue.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer queue.Release()

	start := time.Now()
	err := queue.Acquire(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, domain.ErrQueueTimeout) {
		t.Fatalf("expected ErrQueueTimeout, got %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("rejected before the wait budget elapsed: %v", elapsed)
	}
}

func TestAdmissionQueue_WaiterGetsReleasedSlot(t *testing.T) {
	queue := NewAdmissionQueue(1, time.Second, discardLogger())

	if err := queue.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- queue.Acquire(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	queue.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("waiter should have taken the freed slot: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the freed slot")
	}
	queue.Release()
}

func TestAdmissionQueue_ClosedRejectsImmediately(t *testing.T) {
	queue := NewAdmissionQueue(1, time.Minute, discardLogger())
	queue.Close()

	start := time.Now()
	err := queue.Acquire(context.Background())

	if !errors.Is(err, domain.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("closed queue must reject without waiting")
	}
}

func TestAdmissionQueue_CloseUnblocksWaiters(t *testing.T) {
	queue := NewAdmissionQueue(1, time.Minute, discardLogger())

	if err := queue.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer queue.Release()

	done := make(chan error, 1)
	go func() {
		done <- queue.Acquire(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	queue.Close()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed for queued waiter, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("close did not unblock the queued waiter")
	}
}

func TestAdmissionQueue_CallerCancellation(t *testing.T) {
	queue := NewAdmissionQueue(1, time.Minute, discardLogger())

	if err := queue.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer queue.Release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- queue.Acquire(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancellation did not unblock the waiter")
	}
}
