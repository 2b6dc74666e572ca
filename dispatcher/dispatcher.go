// Package dispatcher implements the bounded FIFO connection queue and
// fixed-size worker pool that decouples an accept loop from per-connection
// handlers, the one nontrivial piece of the companion HTTP program worth
// specifying here (the HTTP parser, path routing, and static file service
// are out of scope).
//
// The protocol is a direct translation of the producer/consumer pattern in
// project3/gunrock.cpp: a std::deque guarded by a pthread_mutex_t with two
// pthread_cond_t's (queue_not_empty, queue_not_full) becomes a
// container/list guarded by a sync.Mutex with two sync.Cond's.
package dispatcher

import (
	"container/list"
	"net"
	"sync"
)

// Handler processes one accepted connection. It's called outside the
// queue's lock, so handlers may block for as long as they need without
// stalling the producer or other workers.
type Handler func(conn net.Conn)

// Dispatcher is a bounded FIFO queue of accepted connections serviced by a
// fixed-size pool of worker goroutines.
type Dispatcher struct {
	bufferSize int
	handler    Handler

	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	queue    *list.List

	stopped bool
}

// New creates a Dispatcher with the given worker pool size and bounded
// queue capacity, and starts the workers. poolSize and bufferSize must both
// be at least 1.
func New(poolSize, bufferSize int, handler Handler) *Dispatcher {
	d := &Dispatcher{
		bufferSize: bufferSize,
		handler:    handler,
		queue:      list.New(),
	}
	d.notEmpty = sync.NewCond(&d.mu)
	d.notFull = sync.NewCond(&d.mu)

	for i := 0; i < poolSize; i++ {
		go d.worker()
	}
	return d
}

// Enqueue is the producer side: it blocks until the queue has room, then
// appends conn to the tail and wakes exactly one waiting worker.
//
// Enqueue must not be called after Stop.
func (d *Dispatcher) Enqueue(conn net.Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for d.queue.Len() >= d.bufferSize && !d.stopped {
		d.notFull.Wait()
	}
	if d.stopped {
		conn.Close()
		return
	}

	d.queue.PushBack(conn)
	d.notEmpty.Signal()
}

// Len reports the current number of queued, not-yet-dispatched connections.
// It's a diagnostic helper; callers must not rely on it for correctness
// since it's stale the instant the lock is released.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// Stop wakes every blocked producer and worker so the process can shut
// down. Any connections still queued are closed without being handled.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	for e := d.queue.Front(); e != nil; e = e.Next() {
		e.Value.(net.Conn).Close()
	}
	d.queue.Init()
	d.mu.Unlock()

	d.notEmpty.Broadcast()
	d.notFull.Broadcast()
}

func (d *Dispatcher) worker() {
	for {
		d.mu.Lock()
		for d.queue.Len() == 0 && !d.stopped {
			d.notEmpty.Wait()
		}
		if d.stopped {
			d.mu.Unlock()
			return
		}

		front := d.queue.Front()
		d.queue.Remove(front)
		d.notFull.Signal()
		d.mu.Unlock()

		conn := front.Value.(net.Conn)
		d.handler(conn)
	}
}
