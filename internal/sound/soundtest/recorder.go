// Package soundtest records cues instead of playing them.
package soundtest

import (
	"context"
	"sync"

	"github.com/bloops-games/joustparty/internal/sound"
)

var _ sound.Player = (*Recorder)(nil)

type Recorder struct {
	mtx        sync.Mutex
	played     []sound.ID
	background []sound.ID
	stops      int
	clears     int
}

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Enqueue(id sound.ID) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.played = append(r.played, id)
}

func (r *Recorder) PlayAndWait(ctx context.Context, id sound.ID) error {
	r.Enqueue(id)
	return ctx.Err()
}

func (r *Recorder) ClearQueue() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.clears++
}

func (r *Recorder) StopCurrent() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.stops++
}

func (r *Recorder) PlayBackground(id sound.ID) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.background = append(r.background, id)
}

func (r *Recorder) StopBackground() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.stops++
}

// Played returns every cue in play order.
func (r *Recorder) Played() []sound.ID {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	out := make([]sound.ID, len(r.played))
	copy(out, r.played)
	return out
}

// Count returns how often id was played.
func (r *Recorder) Count(id sound.ID) int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	n := 0
	for _, p := range r.played {
		if p == id {
			n++
		}
	}
	return n
}

func (r *Recorder) Background() []sound.ID {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	out := make([]sound.ID, len(r.background))
	copy(out, r.background)
	return out
}

func (r *Recorder) Stops() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.stops
}
