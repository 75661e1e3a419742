package audiomixer

import "sync"

// Event is the closed set of inputs the event handler reacts to.
// Producers are the keyboard, mouse and tray listeners
type Event interface {
	event()
}

// ScrollEvent is a wheel turn while the activator combo is held, Delta is in notches
type ScrollEvent struct {
	X, Y  int
	Delta int
}

// MiddleClickEvent is a middle button press while the activator combo is held
type MiddleClickEvent struct {
	X, Y int
}

// ActivatorReleasedEvent fires once whenever the activator combo stops being held
type ActivatorReleasedEvent struct{}

type CursorMoveEvent struct {
	X, Y int
}

type KeyIncrementEvent struct{}

type KeyDecrementEvent struct{}

type KeyMuteToggleEvent struct{}

type ExitRequestedEvent struct{}

// RestartRequestedEvent rebuilds the whole stack, it's how config changes get applied
type RestartRequestedEvent struct{}

func (ScrollEvent) event()            {}
func (MiddleClickEvent) event()       {}
func (ActivatorReleasedEvent) event() {}
func (CursorMoveEvent) event()        {}
func (KeyIncrementEvent) event()      {}
func (KeyDecrementEvent) event()      {}
func (KeyMuteToggleEvent) event()     {}
func (ExitRequestedEvent) event()     {}
func (RestartRequestedEvent) event()  {}

// EventSink accepts events without blocking the caller
type EventSink interface {
	Push(event Event)
}

// fifo is an unbounded multi-producer/single-consumer queue.
// Push never blocks, Pop blocks until an item is available
type fifo[T any] struct {
	lock  sync.Mutex
	ready *sync.Cond
	items []T
}

func newFifo[T any]() *fifo[T] {
	q := &fifo[T]{}
	q.ready = sync.NewCond(&q.lock)

	return q
}

func (q *fifo[T]) Push(item T) {
	q.lock.Lock()
	q.items = append(q.items, item)
	q.lock.Unlock()

	q.ready.Signal()
}

func (q *fifo[T]) Pop() T {
	q.lock.Lock()
	defer q.lock.Unlock()

	for len(q.items) == 0 {
		q.ready.Wait()
	}

	item := q.items[0]

	var zero T
	q.items[0] = zero
	q.items = q.items[1:]

	return item
}

func (q *fifo[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.items)
}

// EventQueue is the one structure every listener writes to concurrently
type EventQueue struct {
	*fifo[Event]
}

func NewEventQueue() *EventQueue {
	return &EventQueue{fifo: newFifo[Event]()}
}
