package stream

import "sync"

// Events fans discrete events out to subscribers. A subscriber whose buffer is full misses
// the event, Publish never waits.
type Events[T any] struct {
	mtx  sync.RWMutex
	size int
	subs map[chan T]struct{}
}

func NewEvents[T any](size int) *Events[T] {
	return &Events[T]{size: size, subs: map[chan T]struct{}{}}
}

// Publish reports how many subscribers received x.
func (e *Events[T]) Publish(x T) int {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	n := 0
	for ch := range e.subs {
		select {
		case ch <- x:
			n++
		default:
		}
	}
	return n
}

// Subscribe returns the receiving channel and a function that detaches and closes it.
func (e *Events[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, e.size)
	e.mtx.Lock()
	e.subs[ch] = struct{}{}
	e.mtx.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mtx.Lock()
			delete(e.subs, ch)
			close(ch)
			e.mtx.Unlock()
		})
	}
}
