package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestValueReplaysCurrent(t *testing.T) {
	t.Parallel()

	v := NewValue(1)
	v.Set(2)

	sub := v.Subscribe()
	defer sub.Close()
	assert.Equal(t, 2, recv(t, sub.C()))
}

func TestValueConflates(t *testing.T) {
	t.Parallel()

	v := NewValue(0)
	sub := v.Subscribe()
	defer sub.Close()

	for i := 1; i <= 100; i++ {
		v.Set(i)
	}

	assert.Equal(t, 100, recv(t, sub.C()))
	select {
	case x := <-sub.C():
		t.Fatalf("unexpected value %d", x)
	default:
	}
}

func TestValueUpdate(t *testing.T) {
	t.Parallel()

	v := NewValue(10)
	got := v.Update(func(x int) int { return x + 5 })
	assert.Equal(t, 15, got)
	assert.Equal(t, 15, v.Get())
}

func TestSubscriptionClose(t *testing.T) {
	t.Parallel()

	v := NewValue("a")
	sub := v.Subscribe()
	sub.Close()
	sub.Close()

	_, ok := <-drain(sub.C())
	require.False(t, ok)
	v.Set("b")
}

func drain(ch <-chan string) <-chan string {
	for range ch {
	}
	return ch
}

func TestEventsDropWhenFull(t *testing.T) {
	t.Parallel()

	e := NewEvents[int](1)
	ch, cancel := e.Subscribe()
	defer cancel()

	assert.Equal(t, 1, e.Publish(1))
	assert.Equal(t, 0, e.Publish(2))
	assert.Equal(t, 1, recv(t, ch))
	assert.Equal(t, 1, e.Publish(3))
	assert.Equal(t, 3, recv(t, ch))
}
