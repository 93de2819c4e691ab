package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrStopped is returned by Do once the dispatcher's Run has returned.
	ErrStopped = errors.New("dispatcher stopped")
	// ErrEventPanicked is returned by Do when fn panicked.
	ErrEventPanicked = errors.New("event panicked")
)

// Dispatcher runs events one at a time on a single goroutine, so the
// controller never sees two events at once.
type Dispatcher struct {
	events  chan *event
	stopped chan struct{}
	log     *slog.Logger
}

type event struct {
	fn   func()
	done chan struct{}
	err  error
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		events:  make(chan *event),
		stopped: make(chan struct{}),
		log:     log,
	}
}

// Run processes events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.run(ev)
		}
	}
}

// run executes one event. A panic fails that event only.
func (d *Dispatcher) run(ev *event) {
	defer close(ev.done)
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event panicked", "panic", r)
			ev.err = fmt.Errorf("%w: %v", ErrEventPanicked, r)
		}
	}()
	ev.fn()
}

// Do queues fn and waits for it to finish. If ctx ends before fn is
// queued, fn never runs.
func (d *Dispatcher) Do(ctx context.Context, fn func()) error {
	ev := &event{fn: fn, done: make(chan struct{})}
	select {
	case d.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrStopped
	}
	<-ev.done
	return ev.err
}
