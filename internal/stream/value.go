// Package stream holds the small observable primitives shared by the poller, the lobby and
// game sessions. Producers never block: subscribers that fall behind only see the latest value.
package stream

import "sync"

// Value is a conflating observable. New subscribers receive the current value immediately,
// later changes overwrite any value the subscriber has not consumed yet.
type Value[T any] struct {
	mtx  sync.RWMutex
	curr T
	set  bool
	subs map[*Subscription[T]]struct{}
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{curr: initial, set: true, subs: map[*Subscription[T]]struct{}{}}
}

type Subscription[T any] struct {
	ch     chan T
	parent *Value[T]
	once   sync.Once
}

// C delivers the latest values. It is closed by Close.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.parent.mtx.Lock()
		delete(s.parent.subs, s)
		close(s.ch)
		s.parent.mtx.Unlock()
	})
}

func (v *Value[T]) Get() T {
	v.mtx.RLock()
	defer v.mtx.RUnlock()
	return v.curr
}

func (v *Value[T]) Set(x T) {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	v.curr = x
	v.set = true
	for sub := range v.subs {
		offer(sub.ch, x)
	}
}

// Update applies fn to the current value under the write lock and publishes the result.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	v.curr = fn(v.curr)
	v.set = true
	for sub := range v.subs {
		offer(sub.ch, v.curr)
	}
	return v.curr
}

func (v *Value[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{ch: make(chan T, 1), parent: v}
	v.mtx.Lock()
	if v.subs == nil {
		v.subs = map[*Subscription[T]]struct{}{}
	}
	v.subs[sub] = struct{}{}
	if v.set {
		sub.ch <- v.curr
	}
	v.mtx.Unlock()
	return sub
}

// offer overwrites the single slot of ch with x. Only producers holding the Value lock call
// it, so the drain and the send cannot interleave with another producer.
func offer[T any](ch chan T, x T) {
	select {
	case ch <- x:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- x:
	default:
	}
}
