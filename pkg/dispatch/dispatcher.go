// Package dispatch runs detached, fire-and-forget tasks such as event
// deliveries. Tasks are started in submission order, at most MaxInFlight
// run at once, and Submit never blocks the caller.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("dispatch: dispatcher is closed")

// Task is a unit of detached work.
type Task func(ctx context.Context) error

// Config configures a Dispatcher.
type Config struct {
	// MaxInFlight caps concurrently running tasks. Defaults to 64.
	MaxInFlight int64

	// OnError receives the error of every failed, panicked, or dropped task.
	OnError func(name string, err error)

	// OnInFlight is called with the number of running tasks whenever it changes.
	OnInFlight func(n int64)
}

type job struct {
	name string
	task Task
}

// Dispatcher runs submitted tasks on background goroutines.
type Dispatcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	done   chan struct{} // closed when the pump exits
	signal chan struct{}

	mu      sync.Mutex
	pending []job
	closed  bool
	active  int           // queued and running jobs
	idle    chan struct{} // closed while active is zero

	inFlight   atomic.Int64
	onError    func(string, error)
	onInFlight func(int64)
}

// New creates a Dispatcher and starts its pump goroutine. Close must be
// called to release it.
func New(cfg Config) *Dispatcher {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		ctx:        ctx,
		cancel:     cancel,
		sem:        semaphore.NewWeighted(maxInFlight),
		done:       make(chan struct{}),
		signal:     make(chan struct{}, 1),
		idle:       make(chan struct{}),
		onError:    cfg.OnError,
		onInFlight: cfg.OnInFlight,
	}
	close(d.idle)
	go d.pump()
	return d
}

// Submit queues task for execution. It never blocks.
func (d *Dispatcher) Submit(name string, task Task) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.active == 0 {
		d.idle = make(chan struct{})
	}
	d.active++
	d.pending = append(d.pending, job{name: name, task: task})
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
	return nil
}

// pump starts queued jobs in order as semaphore slots become free.
func (d *Dispatcher) pump() {
	defer close(d.done)
	for {
		select {
		case <-d.ctx.Done():
			d.drop(d.takeAll(), d.ctx.Err())
			return
		case <-d.signal:
		}

		for _, j := range d.takeAll() {
			if err := d.sem.Acquire(d.ctx, 1); err != nil {
				d.drop([]job{j}, err)
				continue
			}
			d.start(j)
		}
	}
}

func (d *Dispatcher) takeAll() []job {
	d.mu.Lock()
	defer d.mu.Unlock()
	jobs := d.pending
	d.pending = nil
	return jobs
}

func (d *Dispatcher) start(j job) {
	d.setInFlight(d.inFlight.Add(1))
	go func() {
		defer d.finish(1)
		defer d.sem.Release(1)
		defer func() { d.setInFlight(d.inFlight.Add(-1)) }()

		if err := d.run(j); err != nil {
			d.reportError(j.name, err)
		}
	}()
}

func (d *Dispatcher) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: task %q panicked: %v", j.name, r)
		}
	}()
	return j.task(d.ctx)
}

func (d *Dispatcher) drop(jobs []job, cause error) {
	for _, j := range jobs {
		d.reportError(j.name, fmt.Errorf("dispatch: task %q dropped: %w", j.name, cause))
	}
	d.finish(len(jobs))
}

// finish marks n jobs as done and wakes waiters once none remain.
func (d *Dispatcher) finish(n int) {
	if n == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active -= n
	if d.active == 0 {
		close(d.idle)
	}
}

func (d *Dispatcher) idleCh() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

func (d *Dispatcher) reportError(name string, err error) {
	if d.onError != nil {
		d.onError(name, err)
	}
}

func (d *Dispatcher) setInFlight(n int64) {
	if d.onInFlight != nil {
		d.onInFlight(n)
	}
}

// InFlight returns the number of running tasks.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Pending returns the number of tasks waiting to start.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Wait blocks until every submitted task has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	select {
	case <-d.idleCh():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for submitted ones to finish. When
// ctx expires first, running tasks are cancelled, queued tasks are dropped,
// and ctx's error is returned once everything has stopped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	err := d.Wait(ctx)
	d.cancel()
	<-d.done
	<-d.idleCh()
	return err
}
