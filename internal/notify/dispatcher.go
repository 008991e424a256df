package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"recruitment-portal/internal/metrics"
)

// Dispatcher runs post-commit tasks in the background. Tasks sharing a key
// run one after another in submission order; tasks under different keys run
// concurrently. A failed task is logged and counted; nothing is retried.
type Dispatcher struct {
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	mu    sync.Mutex
	tails map[string]chan struct{}
}

func NewDispatcher(log *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{log: log, timeout: timeout, tails: make(map[string]chan struct{})}
}

// Go starts fn detached from ctx's cancellation so a finished request does
// not abort its notifications. fn waits for the previous task under key and
// its timeout starts once that task is done.
func (d *Dispatcher) Go(ctx context.Context, key, task string, fn func(context.Context) error) {
	done := make(chan struct{})
	d.mu.Lock()
	prev := d.tails[key]
	d.tails[key] = done
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.release(key, done)

		if prev != nil {
			<-prev
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			metrics.IncTaskFailed(task)
			d.log.Error("post-commit task failed",
				slog.String("key", key),
				slog.String("task", task),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (d *Dispatcher) release(key string, done chan struct{}) {
	close(done)
	d.mu.Lock()
	if d.tails[key] == done {
		delete(d.tails, key)
	}
	d.mu.Unlock()
}

// Wait blocks until every started task has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
