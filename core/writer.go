package core

import (
	"context"
	"sync"

	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

type writeTask struct {
	name    string
	persist bool
	run     func(ctx context.Context) error
	done    chan struct{}
}

// writer runs persistence and history tasks one at a time in enqueue order.
type writer struct {
	ctx     context.Context
	log     pslog.Logger
	mu      sync.Mutex
	queue   []writeTask
	closed  bool
	lastErr error
	wake    chan struct{}
	exited  chan struct{}
}

func newWriter(ctx context.Context, log pslog.Logger) *writer {
	w := &writer{
		ctx:    context.WithoutCancel(ctx),
		log:    log,
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *writer) enqueue(task writeTask) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return schema.ErrSessionClosed
	}
	w.queue = append(w.queue, task)
	w.mu.Unlock()
	w.signal()
	return nil
}

func (w *writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) loop() {
	defer close(w.exited)
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.mu.Unlock()
			<-w.wake
			w.mu.Lock()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		task := w.queue[0]
		w.queue[0] = writeTask{}
		w.queue = w.queue[1:]
		w.mu.Unlock()
		w.execute(task)
	}
}

func (w *writer) execute(task writeTask) {
	if task.done != nil {
		defer close(task.done)
	}
	if task.run == nil {
		return
	}
	err := task.run(w.ctx)
	if task.persist {
		w.mu.Lock()
		w.lastErr = err
		w.mu.Unlock()
	}
	if err != nil {
		w.log.Warn("session write failed", "task", task.name, "err", err)
		return
	}
	w.log.Trace("session write ok", "task", task.name)
}

// flush waits until every task enqueued before the call has run.
func (w *writer) flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := w.enqueue(writeTask{name: "flush", done: done}); err != nil {
		done = w.exited
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) lastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// shutdown drains the queue and stops the writer goroutine.
func (w *writer) shutdown(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.signal()
	select {
	case <-w.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
