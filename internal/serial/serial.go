// Package serial runs functions one after another outside of caller's goroutine.
package serial

import (
	"sync"
)

// Queue executes submitted functions in submission order, one at a time.
// Worker goroutine is started on demand and exits when queue becomes empty,
// so idle Queue holds no goroutine.
//
// Zero value is ready to use.
type Queue struct {
	mu      sync.Mutex
	fns     []func()
	running bool
}

// Go schedules f. It never blocks.
func (q *Queue) Go(f func()) {
	q.mu.Lock()
	q.fns = append(q.fns, f)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()
	go q.worker()
}

func (q *Queue) worker() {
	var batch []func()
	for {
		q.mu.Lock()
		if len(q.fns) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		batch, q.fns = q.fns, batch[:0]
		q.mu.Unlock()

		for i, f := range batch {
			f()
			batch[i] = nil
		}
	}
}

// Len returns number of functions waiting for execution.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}
