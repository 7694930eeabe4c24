// Package state holds the global game state that decides whether the lobby or a session
// reacts to the controllers.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/bloops-games/joustparty/internal/logging"
	"github.com/bloops-games/joustparty/internal/stream"
)

type Kind uint8

const (
	Lobby Kind = iota + 1
	GameStarting
	GameRunning
	GameFinished
	GameInterrupted
)

var names = map[Kind]string{
	Lobby:           "LOBBY",
	GameStarting:    "GAME_STARTING",
	GameRunning:     "GAME_RUNNING",
	GameFinished:    "GAME_FINISHED",
	GameInterrupted: "GAME_INTERRUPTED",
}

func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// InGame reports whether a session owns the controllers.
func (k Kind) InGame() bool {
	return k == GameStarting || k == GameRunning
}

var transitions = map[Kind][]Kind{
	Lobby:           {GameStarting},
	GameStarting:    {GameRunning, GameInterrupted},
	GameRunning:     {GameFinished, GameInterrupted},
	GameFinished:    {Lobby},
	GameInterrupted: {Lobby},
}

func allowed(from, to Kind) bool {
	for _, k := range transitions[from] {
		if k == to {
			return true
		}
	}
	return false
}

type Machine struct {
	mtx   sync.Mutex
	value *stream.Value[Kind]
}

func New() *Machine {
	return &Machine{value: stream.NewValue(Lobby)}
}

func (m *Machine) Current() Kind {
	return m.value.Get()
}

// Stream replays the current state to new subscribers.
func (m *Machine) Stream() *stream.Value[Kind] {
	return m.value
}

// Transition moves to the given state. A transition the current state does not allow is
// logged and rejected, leaving the state unchanged.
func (m *Machine) Transition(ctx context.Context, to Kind) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.transition(ctx, m.value.Get(), to)
}

// TransitionFrom is Transition guarded by the expected current state.
func (m *Machine) TransitionFrom(ctx context.Context, from, to Kind) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if curr := m.value.Get(); curr != from {
		logging.FromContext(ctx).Named("state.TransitionFrom").Warnf("expected %s, state is %s", from, curr)
		return false
	}
	return m.transition(ctx, from, to)
}

func (m *Machine) transition(ctx context.Context, from, to Kind) bool {
	logger := logging.FromContext(ctx).Named("state.transition")
	if !allowed(from, to) {
		logger.Warnf("rejected transition %s -> %s", from, to)
		return false
	}

	logger.Debugf("%s -> %s", from, to)
	m.value.Set(to)
	return true
}
