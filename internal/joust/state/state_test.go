package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := New()
	assert.Equal(t, Lobby, m.Current())

	for _, to := range []Kind{GameStarting, GameRunning, GameFinished, Lobby} {
		assert.True(t, m.Transition(ctx, to), to.String())
	}
	assert.Equal(t, Lobby, m.Current())
}

func TestRejectsInvalidTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	testCases := []struct {
		name string
		path []Kind
		to   Kind
	}{
		{name: "lobby_to_running", to: GameRunning},
		{name: "double_start", path: []Kind{GameStarting}, to: GameStarting},
		{name: "finish_before_running", path: []Kind{GameStarting}, to: GameFinished},
		{name: "interrupted_to_running", path: []Kind{GameStarting, GameInterrupted}, to: GameRunning},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := New()
			for _, k := range tc.path {
				assert.True(t, m.Transition(ctx, k))
			}
			before := m.Current()
			assert.False(t, m.Transition(ctx, tc.to))
			assert.Equal(t, before, m.Current())
		})
	}
}

func TestTransitionFrom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := New()
	assert.False(t, m.TransitionFrom(ctx, GameRunning, GameInterrupted))
	assert.True(t, m.TransitionFrom(ctx, Lobby, GameStarting))
	assert.True(t, m.TransitionFrom(ctx, GameStarting, GameInterrupted))
	assert.True(t, m.Current() == GameInterrupted)
}

func TestStreamReplaysCurrent(t *testing.T) {
	t.Parallel()

	m := New()
	m.Transition(context.Background(), GameStarting)

	sub := m.Stream().Subscribe()
	defer sub.Close()
	assert.Equal(t, GameStarting, <-sub.C())
	assert.True(t, GameStarting.InGame())
	assert.False(t, GameFinished.InGame())
}
