package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWorkerRunsAndStopsCleanly(t *testing.T) {
	sup := NewSupervisor(zap.NewNop())

	var ran int32
	err := sup.AddWorker(WorkerConfig{Name: "clean", Detail: "test"}, func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		<-ctx.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("AddWorker failed: %v", err)
	}

	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("expected worker to have started")
	}

	if err := sup.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	status, err := sup.Status("clean")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != StatusStopped {
		t.Errorf("got status %s, want %s", status, StatusStopped)
	}
}

func TestWorkerRetriesWithBackoffUntilSuccess(t *testing.T) {
	sup := NewSupervisor(zap.NewNop())

	var attempts int32
	err := sup.AddWorker(WorkerConfig{
		Name:           "flaky",
		Detail:         "test",
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		BackoffFactor:  2.0,
	}, func(ctx context.Context) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return errors.New("transient failure")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AddWorker failed: %v", err)
	}

	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("worker did not succeed in time, attempts=%d", atomic.LoadInt32(&attempts))
		default:
		}
		if atomic.LoadInt32(&attempts) >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWorkerPanicIsRecoveredAsError(t *testing.T) {
	sup := NewSupervisor(zap.NewNop())

	var attempts int32
	err := sup.AddWorker(WorkerConfig{
		Name:           "panicky",
		Detail:         "test",
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2.0,
	}, func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		panic("boom")
	})
	if err != nil {
		t.Fatalf("AddWorker failed: %v", err)
	}

	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop()

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&attempts) < 2 {
		t.Error("expected the supervisor to restart a worker that panicked")
	}
}

func TestAddWorkerRejectsDuplicateName(t *testing.T) {
	sup := NewSupervisor(zap.NewNop())
	fn := func(ctx context.Context) error { <-ctx.Done(); return nil }

	if err := sup.AddWorker(WorkerConfig{Name: "dup", Detail: "a"}, fn); err != nil {
		t.Fatalf("first AddWorker failed: %v", err)
	}
	if err := sup.AddWorker(WorkerConfig{Name: "dup", Detail: "b"}, fn); err == nil {
		t.Error("expected a duplicate worker name to be rejected")
	}
}

func TestAddWorkerRejectsAfterStart(t *testing.T) {
	sup := NewSupervisor(zap.NewNop())
	fn := func(ctx context.Context) error { <-ctx.Done(); return nil }

	if err := sup.AddWorker(WorkerConfig{Name: "one", Detail: "a"}, fn); err != nil {
		t.Fatalf("AddWorker failed: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop()

	if err := sup.AddWorker(WorkerConfig{Name: "two", Detail: "b"}, fn); err == nil {
		t.Error("expected AddWorker to be rejected once the supervisor is running")
	}
}

func TestMaxRetriesExhaustedMarksFailed(t *testing.T) {
	sup := NewSupervisor(zap.NewNop())

	err := sup.AddWorker(WorkerConfig{
		Name:           "doomed",
		Detail:         "test",
		MaxRetries:     2,
		InitialBackoff: 2 * time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}, func(ctx context.Context) error {
		return errors.New("always fails")
	})
	if err != nil {
		t.Fatalf("AddWorker failed: %v", err)
	}

	if err := sup.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop()

	deadline := time.After(2 * time.Second)
	for {
		status, err := sup.Status("doomed")
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status == StatusFailed {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("worker never reached StatusFailed, last status %s", status)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
