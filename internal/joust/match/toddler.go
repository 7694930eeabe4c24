package match

import (
	"context"
	"time"

	"github.com/bloops-games/joustparty/internal/device"
	"github.com/bloops-games/joustparty/internal/sound"
	"github.com/bloops-games/joustparty/internal/util"
)

// toddler is a placeholder round: the controllers cycle through the rainbow until time is up.
type toddler struct {
	rules  Rules
	timeUp bool
}

func newToddler(rules Rules) game {
	return &toddler{rules: rules}
}

func (g *toddler) setup(context.Context, *Session) error {
	return nil
}

func (g *toddler) begin(ctx context.Context, s *Session) {
	s.mtx.Lock()
	for _, p := range s.playersLocked() {
		p.dev.SetColorAnimation(device.Rainbow, 4*time.Second, true)
	}
	s.mtx.Unlock()

	s.spawn(ctx, func(ctx context.Context) {
		if err := util.Sleep(ctx, g.rules.SortingToddler.Duration); err != nil {
			return
		}
		s.mtx.Lock()
		defer s.mtx.Unlock()
		g.timeUp = true
		s.evaluateLocked()
	})
}

func (g *toddler) move(*Session, *player, float64) {}

func (g *toddler) lost(s *Session, p *player, _ cause) {
	s.knockOutLocked(p)
}

func (g *toddler) result(s *Session) ([]string, sound.ID, bool) {
	if !g.timeUp {
		return nil, "", false
	}
	return s.aliveLocked(), sound.GameOver, true
}
