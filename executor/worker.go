package executor

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/zap"
)

type worker struct {
	id    int
	exec  *Executor
	batch []func()

	mu     sync.Mutex
	tasks  *queue.Queue
	closed bool
	wake   chan struct{}
}

func newWorker(id int, exec *Executor, bufferSize int) *worker {
	return &worker{
		id:    id,
		exec:  exec,
		batch: make([]func(), 0, bufferSize),
		tasks: queue.New(),
		wake:  make(chan struct{}, 1),
	}
}

func (w *worker) enqueue(task func()) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	// counted before a worker can see the task
	w.exec.submitted.Add(1)
	w.tasks.Add(task)
	w.mu.Unlock()
	w.signal()
	return true
}

func (w *worker) shutdown() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.signal()
}

func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *worker) run() {
	for {
		batch, closed := w.take()
		if len(batch) == 0 {
			if closed {
				return
			}
			<-w.wake
			continue
		}
		for i, task := range batch {
			w.execute(task)
			batch[i] = nil
		}
	}
}

// take moves up to cap(w.batch) queued tasks into the worker's batch.
func (w *worker) take() ([]func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := w.batch[:0]
	for len(batch) < cap(batch) && w.tasks.Length() > 0 {
		batch = append(batch, w.tasks.Remove().(func()))
	}
	return batch, w.closed
}

func (w *worker) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			w.exec.panicked.Add(1)
			w.exec.logger.Error("panic in submitted task",
				zap.String("executor", w.exec.id),
				zap.Int("worker", w.id),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
		w.exec.completed.Add(1)
	}()
	task()
}
