package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"
)

func TestWriterRunsTasksInOrder(t *testing.T) {
	w := newWriter(context.Background(), pslog.Ctx(context.Background()))
	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		if err := w.enqueue(writeTask{name: "step", run: func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 50 {
		t.Fatalf("expected 50 tasks to run, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestWriterIgnoresHistoryErrorsForLastError(t *testing.T) {
	w := newWriter(context.Background(), pslog.Ctx(context.Background()))
	defer w.shutdown(context.Background())
	_ = w.enqueue(writeTask{name: "history", run: func(context.Context) error { return errors.New("offline") }})
	if err := w.flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := w.lastError(); err != nil {
		t.Fatalf("expected history failure not to count as persist error, got %v", err)
	}
}

func TestWriterFlushHonorsContext(t *testing.T) {
	w := newWriter(context.Background(), pslog.Ctx(context.Background()))
	release := make(chan struct{})
	_ = w.enqueue(writeTask{name: "slow", run: func(context.Context) error {
		<-release
		return nil
	}})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(release)
	if err := w.shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
